// Package config handles the parsing and validation of application configuration
// from command-line arguments and environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/laval/internal/logger"
	"github.com/woozymasta/laval/internal/vars"
)

// DefaultManagerURL is used when no manager base URL is configured.
const DefaultManagerURL = "http://localhost:50051"

// ErrAuthTokenRequired is returned when the lookup history API would be served without a token.
var ErrAuthTokenRequired = errors.New("required flag `-t, --auth-token' or environment variable `LAVAL_AUTH_TOKEN` was not specified, it is needed with `--db-path`")

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Server    Server        `group:"Server Options" env-namespace:"LAVAL"`
	Manager   Manager       `group:"Manager Options" namespace:"grpc" env-namespace:"LAVAL_GRPC"`
	Query     Query         `group:"Query Options" namespace:"query" env-namespace:"LAVAL_QUERY"`
	Storage   Storage       `group:"Audit Options" namespace:"db" env-namespace:"LAVAL_DB"`
	RateLimit RateLimit     `group:"Rate Limit Options" namespace:"rate-limit" env-namespace:"LAVAL_RATE_LIMIT"`
	Logger    logger.Config `group:"Logger Options" namespace:"log" env-namespace:"LAVAL_LOG"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`
}

// Server holds web server configuration.
type Server struct {
	// betteralign:ignore

	Address     string        `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Server listen address" default:":8080"`
	AuthToken   string        `short:"t" long:"auth-token" env:"AUTH_TOKEN" description:"Bearer token protecting the lookup history API"`
	TrustProxy  bool          `long:"trust-proxy" env:"TRUST_PROXY" description:"Trust X-Forwarded-For headers"`
	SessionIdle time.Duration `long:"session-idle" env:"SESSION_IDLE" description:"Drop browser query sessions idle for longer than this" default:"30m"`
	MaxBodySize int64         `long:"max-body-size" env:"MAX_BODY_SIZE" description:"Max body size for lookup requests" default:"4096"`
}

// Manager holds the node manager RPC endpoint configuration.
type Manager struct {
	// betteralign:ignore

	URL     string        `short:"g" long:"url" env:"URL" description:"Node manager gRPC-Web base URL" default:"http://localhost:50051"`
	Timeout time.Duration `long:"timeout" env:"TIMEOUT" description:"Timeout of a single manager call" default:"10s"`

	FakeListen string `long:"fake-listen" hidden:"true" description:"Serve an in-memory node manager on this address and query it"`
	FakeNodes  int    `long:"fake-nodes" hidden:"true" description:"Number of random nodes added to the in-memory manager"`
}

// Query holds the one-shot terminal lookup options.
type Query struct {
	// betteralign:ignore

	Name   string `short:"q" long:"name" env:"NAME" description:"Look up a single node, print the result and exit"`
	Output string `short:"o" long:"output" env:"OUTPUT" description:"Terminal output format" choice:"text" choice:"json" default:"text"`
}

// Storage holds the lookup audit log configuration.
type Storage struct {
	// betteralign:ignore

	Path        string        `short:"d" long:"path" env:"PATH" description:"Path to SQLite audit database, empty disables auditing"`
	PruneOlder  time.Duration `long:"prune-older" description:"Delete audit records older than duration and exit"`
	HistorySize int           `long:"history-size" env:"HISTORY_SIZE" description:"Default number of records returned by the history API" default:"50"`
}

// RateLimit holds lookup API rate limiting configuration.
type RateLimit struct {
	// betteralign:ignore

	HardLimitCount int           `long:"hard-count" env:"HARD_COUNT" description:"Hard IP limit: requests count" default:"30"`
	HardLimitWin   time.Duration `long:"hard-window" env:"HARD_WINDOW" description:"Hard IP limit: window duration" default:"1m"`
}

// Parse reads the configuration from flags and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	cfg, err := ParseArgs(os.Args[1:], flags.Default)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		if flagsErr == nil {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	return cfg
}

// ParseArgs parses args and the environment into a validated Config.
func ParseArgs(args []string, options flags.Options) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, options)
	parser.NamespaceDelimiter = "-"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	managerURL, err := NormalizeManagerURL(cfg.Manager.URL)
	if err != nil {
		return nil, err
	}
	cfg.Manager.URL = managerURL

	// the history API is only served by the web frontend
	if cfg.Storage.Path != "" && cfg.Server.AuthToken == "" && cfg.Query.Name == "" && cfg.Storage.PruneOlder <= 0 {
		return nil, ErrAuthTokenRequired
	}

	return &cfg, nil
}

// NormalizeManagerURL resolves the manager base URL, selecting DefaultManagerURL when raw is blank.
func NormalizeManagerURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultManagerURL, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid manager url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid manager url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid manager url %q: missing host", raw)
	}

	return strings.TrimRight(raw, "/"), nil
}
