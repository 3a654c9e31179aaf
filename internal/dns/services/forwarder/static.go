package forwarder

import (
	"context"
	"fmt"
	"net"

	"github.com/haukened/fw-dns/internal/dns/common/log"
	"github.com/haukened/fw-dns/internal/dns/domain"
)

// Static answers every question with a fixed A record. It is the handler
// used when no upstream resolver is configured.
type Static struct {
	rdata  []byte // 4-byte IPv4 in wire order
	ttl    uint32
	logger log.Logger
}

// NewStatic creates a Static responder answering with the given IPv4
// address and TTL.
func NewStatic(ip string, ttl uint32, logger log.Logger) (*Static, error) {
	addr := net.ParseIP(ip)
	if addr == nil {
		return nil, fmt.Errorf("invalid answer IP %q", ip)
	}
	v4 := addr.To4()
	if v4 == nil {
		return nil, fmt.Errorf("answer IP %q is not IPv4", ip)
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Static{
		rdata:  []byte(v4),
		ttl:    ttl,
		logger: logger,
	}, nil
}

// HandleQuery answers each question with the configured A record. Queries
// with a nonzero opcode get NOTIMP and no answers, like the Forwarder.
func (s *Static) HandleQuery(ctx context.Context, req domain.Message, clientAddr net.Addr) (domain.Message, error) {
	resp := domain.NewResponse(req)

	if req.Header.Flags.Opcode != 0 {
		return resp, nil
	}

	for _, q := range req.Questions {
		resp.Answers = append(resp.Answers, domain.ResourceRecord{
			Name:  q.Name,
			Type:  domain.RRTypeA,
			Class: domain.RRClassIN,
			TTL:   s.ttl,
			Data:  s.rdata,
		})
	}
	resp.SyncCounts()

	s.logger.Debug(map[string]any{
		"client":  clientAddr.String(),
		"id":      req.Header.ID,
		"answers": len(resp.Answers),
	}, "Answered with static record")

	return resp, nil
}

var _ DNSResponder = (*Static)(nil)
