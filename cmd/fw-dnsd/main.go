package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haukened/fw-dns/internal/dns/common/clock"
	"github.com/haukened/fw-dns/internal/dns/common/log"
	"github.com/haukened/fw-dns/internal/dns/config"
	"github.com/haukened/fw-dns/internal/dns/gateways/transport"
	"github.com/haukened/fw-dns/internal/dns/gateways/upstream"
	"github.com/haukened/fw-dns/internal/dns/gateways/wire"
	"github.com/haukened/fw-dns/internal/dns/services/forwarder"
)

const (
	version = "0.1.0-dev"
	appName = "fw-dnsd"

	defaultShutdownTimeout = 10 * time.Second
)

// Application holds all the components of the DNS server
type Application struct {
	config    *config.AppConfig
	transport *transport.UDPTransport
	responder forwarder.DNSResponder
	exchanger *upstream.Exchanger
}

func main() {
	overrides := parseFlags(os.Args[1:])

	cfg, err := config.Load(overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":   version,
		"env":       cfg.Env,
		"log_level": cfg.LogLevel,
		"port":      cfg.Port,
		"resolver":  cfg.Resolver,
	}, "Starting DNS forwarder")

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatal(map[string]any{"error": err}, "Server failed")
	}

	log.Info(nil, "DNS forwarder stopped gracefully")
}

// parseFlags reads command line arguments into config override keys. Flags
// beat environment variables, which beat built-in defaults.
func parseFlags(args []string) map[string]any {
	fs := flag.NewFlagSet(appName, flag.ExitOnError)
	resolver := fs.String("resolver", "", "upstream DNS server in ip:port format; omit to answer locally")
	port := fs.Int("port", 0, "UDP port to listen on")
	_ = fs.Parse(args) // ExitOnError, never returns an error

	overrides := make(map[string]any)
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "resolver":
			overrides["resolver"] = *resolver
		case "port":
			overrides["port"] = *port
		}
	})
	return overrides
}

// buildApplication constructs all components and wires them together
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	logger := log.GetLogger()

	codec := wire.NewUDPCodec(logger)

	app := &Application{
		config:    cfg,
		transport: transport.NewUDPTransport(cfg.ListenAddress(), codec, logger),
	}

	if cfg.Forwarding() {
		exchanger, err := upstream.NewExchanger(upstream.Options{
			Address: cfg.Resolver,
			Codec:   codec,
			Timeout: cfg.UpstreamTimeout,
			Retries: cfg.Retries,
			Logger:  logger,
			Clock:   &clock.RealClock{},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create upstream exchanger: %w", err)
		}
		app.exchanger = exchanger
		app.responder = forwarder.New(forwarder.ForwarderOptions{
			Upstream:    exchanger,
			Logger:      logger,
			MaxInflight: cfg.MaxInflight,
		})

		log.Info(map[string]any{
			"resolver": cfg.Resolver,
			"timeout":  cfg.UpstreamTimeout,
			"retries":  cfg.Retries,
		}, "Upstream forwarding configured")
	} else {
		static, err := forwarder.NewStatic(cfg.AnswerIP, cfg.AnswerTTL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create static responder: %w", err)
		}
		app.responder = static

		log.Info(map[string]any{
			"answer_ip":  cfg.AnswerIP,
			"answer_ttl": cfg.AnswerTTL,
		}, "Static answer mode configured")
	}

	return app, nil
}

// Run starts the DNS server and blocks until the context is cancelled
func (app *Application) Run(ctx context.Context) error {
	if err := app.transport.Start(ctx, app.responder); err != nil {
		return fmt.Errorf("failed to start UDP transport: %w", err)
	}

	log.Info(map[string]any{
		"address":   app.transport.Address(),
		"transport": "UDP",
	}, "DNS server started")

	<-ctx.Done()

	log.Info(nil, "Shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if err := app.transport.Stop(); err != nil {
			log.Warn(map[string]any{"error": err}, "Error during transport shutdown")
		}
		if app.exchanger != nil {
			if err := app.exchanger.Close(); err != nil {
				log.Warn(map[string]any{"error": err}, "Error closing upstream exchanger")
			}
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info(nil, "Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		log.Warn(map[string]any{"timeout": defaultShutdownTimeout}, "Shutdown timeout exceeded")
		return fmt.Errorf("shutdown timeout")
	}
}
