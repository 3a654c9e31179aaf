package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables,
// with optional command line overrides layered on top.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Port is the network port the DNS server will bind to.
	Port int `koanf:"port" validate:"required,gte=1,lt=65535"`

	// Resolver is the upstream DNS server in ip:port format. When empty the
	// server answers every A question itself with AnswerIP.
	Resolver string `koanf:"resolver" validate:"omitempty,ip_port"`

	// UpstreamTimeout bounds each upstream exchange attempt.
	UpstreamTimeout time.Duration `koanf:"upstream_timeout" validate:"required,gt=0"`

	// Retries is how many extra upstream attempts follow a timeout.
	Retries int `koanf:"retries" validate:"gte=0,lte=5"`

	// MaxInflight bounds concurrent upstream exchanges per client request.
	MaxInflight int `koanf:"max_inflight" validate:"required,gte=1,lte=64"`

	// AnswerIP is the IPv4 address returned for every question when no
	// Resolver is configured.
	AnswerIP string `koanf:"answer_ip" validate:"required,ipv4"`

	// AnswerTTL is the TTL in seconds on locally produced answers.
	AnswerTTL uint32 `koanf:"answer_ttl" validate:"required,gte=1"`
}

// DEFAULT_APP_CONFIG defines the default application configuration for the
// DNS forwarder. The default port is 2053 so the server runs unprivileged.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:             "prod",
	LogLevel:        "info",
	Port:            2053,
	Resolver:        "",
	UpstreamTimeout: 5 * time.Second,
	Retries:         1,
	MaxInflight:     8,
	AnswerIP:        "8.8.8.8",
	AnswerTTL:       60,
}

// validIPPort validates whether the provided field value is a valid IP address
// and port combination in "IP:Port" format.
func validIPPort(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	ip, port, err := net.SplitHostPort(addr)
	if err != nil || ip == "" || port == "" {
		return false
	}
	if net.ParseIP(ip) == nil {
		return false
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	return err == nil && portNum > 0 && portNum < 65536
}

// envLoader loads environment variables with the prefix "FWDNS_", lowercasing
// keys and stripping the prefix. It is a variable so tests can substitute it.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "FWDNS_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "FWDNS_"))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG into the Koanf instance using the
// structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the custom "ip_port" validation tag.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("ip_port", validIPPort)
}

// Load builds an AppConfig from defaults, then FWDNS_* environment variables,
// then the given overrides (typically parsed command line flags). Overrides
// use the koanf key names, e.g. "port" or "resolver". Validation runs on the
// merged result.
func Load(overrides map[string]any) (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("error loading overrides: %w", err)
		}
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}

// ListenAddress returns the address the server should bind to.
func (c *AppConfig) ListenAddress() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Forwarding reports whether an upstream resolver is configured.
func (c *AppConfig) Forwarding() bool {
	return c.Resolver != ""
}
