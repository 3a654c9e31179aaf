// Package transport provides network transports for the DNS server. It owns
// socket management and wire conversion so the service layer only ever sees
// domain messages.
package transport

import (
	"context"

	"github.com/haukened/fw-dns/internal/dns/services/forwarder"
)

// ServerTransport is the contract every DNS transport implementation satisfies.
type ServerTransport interface {
	// Start binds the transport and begins dispatching requests to the handler.
	Start(ctx context.Context, handler forwarder.DNSResponder) error

	// Stop shuts the transport down, closing its socket.
	Stop() error

	// Address returns the network address the transport is bound to. Before
	// Start it returns the configured address; after Start it returns the
	// actual bound address, which matters when the configured port is 0.
	Address() string
}

// TransportType identifies a DNS transport protocol.
type TransportType string

const (
	// TransportUDP is standard DNS over UDP (RFC 1035).
	TransportUDP TransportType = "udp"

	// TransportDoT is DNS over TLS (RFC 7858), not yet implemented.
	TransportDoT TransportType = "dot"

	// TransportDoH is DNS over HTTPS (RFC 8484), not yet implemented.
	TransportDoH TransportType = "doh"
)
