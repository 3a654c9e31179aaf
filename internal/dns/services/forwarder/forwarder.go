// Package forwarder implements the DNS request handling services: the
// Forwarder splits multi-question queries into independent upstream
// exchanges and merges the results, and the Static responder answers every
// question with a fixed record when no upstream is configured.
package forwarder

import (
	"context"
	"net"
	"sync"

	"github.com/haukened/fw-dns/internal/dns/common/log"
	"github.com/haukened/fw-dns/internal/dns/domain"
)

// defaultMaxInflight bounds concurrent upstream exchanges per request.
const defaultMaxInflight = 8

// Forwarder resolves client queries by fanning each question out to the
// upstream resolver and merging the per-question answers into one response
// correlated with the client's transaction ID.
type Forwarder struct {
	upstream    Exchanger
	logger      log.Logger
	maxInflight int
}

// ForwarderOptions configures a Forwarder.
type ForwarderOptions struct {
	// Upstream performs the per-question exchanges. Required.
	Upstream Exchanger

	// MaxInflight bounds concurrent upstream exchanges for one request.
	// Defaults to 8.
	MaxInflight int

	Logger log.Logger
}

// New creates a Forwarder from opts.
func New(opts ForwarderOptions) *Forwarder {
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = defaultMaxInflight
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Forwarder{
		upstream:    opts.Upstream,
		logger:      opts.Logger,
		maxInflight: opts.MaxInflight,
	}
}

// HandleQuery forwards each question of req upstream and merges the
// results. Questions whose exchange fails or returns no answer are omitted
// from the answer section; ANCount reflects only answers actually obtained.
// Queries with a nonzero opcode are answered locally with NOTIMP.
func (f *Forwarder) HandleQuery(ctx context.Context, req domain.Message, clientAddr net.Addr) (domain.Message, error) {
	resp := domain.NewResponse(req)

	if req.Header.Flags.Opcode != 0 {
		f.logger.Debug(map[string]any{
			"client": clientAddr.String(),
			"id":     req.Header.ID,
			"opcode": req.Header.Flags.Opcode,
		}, "Answering unsupported opcode with NOTIMP")
		return resp, nil
	}

	// one slot per question so the merge preserves question order no
	// matter how the exchanges interleave
	results := make([]*domain.ResourceRecord, len(req.Questions))

	var wg sync.WaitGroup
	sem := make(chan struct{}, f.maxInflight)
	for i, q := range req.Questions {
		wg.Add(1)
		go func(i int, q domain.Question) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = f.resolveQuestion(ctx, req.Header.ID, q)
		}(i, q)
	}
	wg.Wait()

	for _, rr := range results {
		if rr != nil {
			resp.Answers = append(resp.Answers, *rr)
		}
	}
	resp.SyncCounts()

	f.logger.Debug(map[string]any{
		"client":    clientAddr.String(),
		"id":        req.Header.ID,
		"questions": len(req.Questions),
		"answers":   len(resp.Answers),
	}, "Merged forwarded response")

	return resp, nil
}

// resolveQuestion runs one upstream exchange and returns the first answer
// record, or nil when the exchange fails or the upstream has no answer.
func (f *Forwarder) resolveQuestion(ctx context.Context, id uint16, q domain.Question) *domain.ResourceRecord {
	query := domain.NewQuery(id, q)

	up, err := f.upstream.Exchange(ctx, query)
	if err != nil {
		f.logger.Warn(map[string]any{
			"name":  q.Name,
			"type":  q.Type.String(),
			"id":    id,
			"error": err.Error(),
		}, "Upstream exchange failed")
		return nil
	}
	if len(up.Answers) == 0 {
		f.logger.Debug(map[string]any{
			"name":  q.Name,
			"type":  q.Type.String(),
			"rcode": up.Header.Flags.RCode.String(),
		}, "Upstream returned no answers")
		return nil
	}
	return &up.Answers[0]
}

var _ DNSResponder = (*Forwarder)(nil)
