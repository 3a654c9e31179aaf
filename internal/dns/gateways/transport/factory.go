package transport

import (
	"fmt"

	"github.com/haukened/fw-dns/internal/dns/common/log"
	"github.com/haukened/fw-dns/internal/dns/gateways/wire"
)

// NewTransport creates a transport instance for the given protocol. Only UDP
// is implemented today; the factory exists so encrypted transports can be
// added without touching the callers.
func NewTransport(transportType TransportType, addr string, codec wire.MessageCodec, logger log.Logger) (ServerTransport, error) {
	switch transportType {
	case TransportUDP:
		return NewUDPTransport(addr, codec, logger), nil

	case TransportDoT:
		return nil, fmt.Errorf("DNS over TLS transport not yet implemented")

	case TransportDoH:
		return nil, fmt.Errorf("DNS over HTTPS transport not yet implemented")

	default:
		return nil, fmt.Errorf("unsupported transport type: %s", transportType)
	}
}

// IsTransportSupported reports whether a transport type can be constructed.
func IsTransportSupported(transportType TransportType) bool {
	return transportType == TransportUDP
}
