// Package upstream talks to the configured upstream resolver over UDP.
// It owns a small pool of connected sockets, applies per-exchange deadlines,
// and retries timed-out exchanges with backoff.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/haukened/fw-dns/internal/dns/common/clock"
	"github.com/haukened/fw-dns/internal/dns/common/log"
	"github.com/haukened/fw-dns/internal/dns/domain"
	"github.com/haukened/fw-dns/internal/dns/gateways/wire"
)

// Sentinel errors for upstream exchanges.
var (
	// ErrUpstreamUnavailable indicates a send/receive failure talking to
	// the resolver, including undecodable or misidentified responses.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamTimeout indicates the upstream produced no response
	// within the per-exchange deadline across all attempts.
	ErrUpstreamTimeout = errors.New("upstream timeout")
)

// udpMaxMessageSize is the conventional ceiling for plain UDP DNS.
const udpMaxMessageSize = 512

// DialFunc establishes a network connection. Injected in tests.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Options configures an Exchanger.
type Options struct {
	// Address is the upstream resolver in ip:port form. Required.
	Address string

	// Codec encodes queries and decodes responses. Required.
	Codec wire.MessageCodec

	// Timeout bounds a single exchange attempt. Defaults to 5s.
	Timeout time.Duration

	// Retries is how many additional attempts follow a timed-out exchange.
	// Zero disables retries; negative values are normalized to zero.
	Retries int

	// PoolSize caps the number of idle upstream sockets kept for reuse.
	// Defaults to 8.
	PoolSize int

	Logger log.Logger
	Clock  clock.Clock
	Dial   DialFunc
}

// Exchanger performs single query/response exchanges against one upstream
// resolver. A pooled connection is held exclusively for the duration of one
// send/receive pair, so responses cannot be delivered to the wrong exchange
// even when concurrent exchanges carry the same transaction ID.
type Exchanger struct {
	address string
	codec   wire.MessageCodec
	timeout time.Duration
	retries int
	logger  log.Logger
	clk     clock.Clock
	dial    DialFunc
	pool    chan net.Conn
}

// NewExchanger creates an Exchanger from opts, applying defaults.
func NewExchanger(opts Options) (*Exchanger, error) {
	if opts.Address == "" {
		return nil, fmt.Errorf("upstream address is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("message codec is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 8
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Dial == nil {
		opts.Dial = (&net.Dialer{}).DialContext
	}
	return &Exchanger{
		address: opts.Address,
		codec:   opts.Codec,
		timeout: opts.Timeout,
		retries: opts.Retries,
		logger:  opts.Logger,
		clk:     opts.Clock,
		dial:    opts.Dial,
		pool:    make(chan net.Conn, opts.PoolSize),
	}, nil
}

// Exchange sends query upstream and returns the decoded response. Timed-out
// attempts are retried with backoff up to the configured retry budget;
// other failures are returned immediately.
func (e *Exchanger) Exchange(ctx context.Context, query domain.Message) (domain.Message, error) {
	data, err := e.codec.EncodeMessage(query)
	if err != nil {
		return domain.Message{}, fmt.Errorf("encode query: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= e.retries; attempt++ {
		if attempt > 0 {
			e.logger.Warn(map[string]any{
				"upstream": e.address,
				"id":       query.Header.ID,
				"attempt":  attempt + 1,
			}, "Retrying upstream exchange after timeout")

			select {
			case <-ctx.Done():
				return domain.Message{}, fmt.Errorf("%w: %v", ErrUpstreamTimeout, ctx.Err())
			case <-time.After(backoff(attempt)):
			}
		}

		resp, err := e.exchangeOnce(ctx, data, query.Header.ID)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, ErrUpstreamTimeout) {
			return domain.Message{}, err
		}
		lastErr = err
	}
	return domain.Message{}, lastErr
}

// Close discards all pooled connections.
func (e *Exchanger) Close() error {
	var firstErr error
	for {
		select {
		case conn := <-e.pool:
			if err := conn.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		default:
			return firstErr
		}
	}
}

// exchangeOnce runs one send/receive pair on an exclusively held connection.
func (e *Exchanger) exchangeOnce(ctx context.Context, data []byte, expectID uint16) (domain.Message, error) {
	conn, err := e.getConn(ctx)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: dial %s: %v", ErrUpstreamUnavailable, e.address, err)
	}

	deadline := e.clk.Now().Add(e.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return domain.Message{}, fmt.Errorf("%w: set deadline: %v", ErrUpstreamUnavailable, err)
	}

	if _, err := conn.Write(data); err != nil {
		conn.Close()
		return domain.Message{}, classify("write", err)
	}

	buf := make([]byte, udpMaxMessageSize)
	n, err := conn.Read(buf)
	if err != nil {
		conn.Close()
		return domain.Message{}, classify("read", err)
	}

	resp, err := e.codec.DecodeMessage(buf[:n])
	if err != nil {
		conn.Close()
		return domain.Message{}, fmt.Errorf("%w: decode response: %v", ErrUpstreamUnavailable, err)
	}
	if resp.Header.ID != expectID {
		// stale or spoofed datagram; the socket may have more of them queued
		conn.Close()
		return domain.Message{}, fmt.Errorf("%w: response ID %d does not match query ID %d",
			ErrUpstreamUnavailable, resp.Header.ID, expectID)
	}

	e.putConn(conn)
	return resp, nil
}

// getConn takes an idle pooled connection or dials a new one.
func (e *Exchanger) getConn(ctx context.Context) (net.Conn, error) {
	select {
	case conn := <-e.pool:
		return conn, nil
	default:
		return e.dial(ctx, "udp", e.address)
	}
}

// putConn returns a healthy connection to the pool, closing it if the pool
// is already full.
func (e *Exchanger) putConn(conn net.Conn) {
	// clear the exchange deadline before the socket idles in the pool
	_ = conn.SetDeadline(time.Time{})
	select {
	case e.pool <- conn:
	default:
		conn.Close()
	}
}

// classify wraps a network error as a timeout or an availability failure.
func classify(op string, err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %s: %v", ErrUpstreamTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, op, err)
}

// backoff returns the delay before retry attempt n.
func backoff(attempt int) time.Duration {
	return time.Duration(attempt) * 50 * time.Millisecond
}
