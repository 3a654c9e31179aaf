package forwarder

import (
	"context"
	"net"

	"github.com/haukened/fw-dns/internal/dns/domain"
)

// Exchanger performs one query/response exchange against the upstream
// resolver. Implemented by gateways/upstream.
type Exchanger interface {
	Exchange(ctx context.Context, query domain.Message) (domain.Message, error)
}

// DNSResponder is how the transport layer hands decoded queries to a
// service. The transport owns all wire and socket concerns; the responder
// only sees domain objects. A returned error means no response is sent.
type DNSResponder interface {
	HandleQuery(ctx context.Context, req domain.Message, clientAddr net.Addr) (domain.Message, error)
}
