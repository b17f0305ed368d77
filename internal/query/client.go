// Package query implements the node configuration lookup: validation, the remote call,
// and normalization of every failure into a single user-facing message.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/laval/internal/models"
)

const (
	// ValidationMessage is reported for an empty or whitespace-only node name.
	ValidationMessage = "Please enter a node name"

	// FallbackMessage is reported when a fault carries no usable description.
	FallbackMessage = "Failed to fetch node configuration"
)

// ErrInFlight is returned by Submit while another lookup of the same client is outstanding.
var ErrInFlight = errors.New("a lookup is already in progress")

// errUnrecognized marks faults without a usable shape, such as a nil response or a non-error panic.
var errUnrecognized = errors.New("unrecognized fault")

// NodeManager is the remote lookup the client dispatches to.
type NodeManager interface {
	GetNodeConfig(ctx context.Context, name string) (*models.NodeConfig, error)
}

// Recorder persists lookup outcomes.
type Recorder interface {
	RecordLookup(l models.Lookup) error
}

// Option configures a Client.
type Option func(*Client)

// WithNotifier sets where notifications are sent. The default discards them.
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithRecorder enables recording of every terminal outcome.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// Result is the single outcome of one submission.
type Result struct {
	// Config is set only for successful lookups.
	Config *models.NodeConfig

	// NodeName is the trimmed name that was requested.
	NodeName string

	// Outcome tells success, success without port mapping, or the failure category.
	Outcome models.Outcome

	// Message is the normalized failure message, empty on success.
	Message string

	Duration time.Duration
}

// HasPortMapping reports whether a successful result carries a port mapping.
func (r Result) HasPortMapping() bool {
	return r.Config != nil && r.Config.PortMapping != nil
}

// Failed reports whether the submission ended in one of the failure categories.
func (r Result) Failed() bool {
	return r.Outcome.Failed()
}

// State is what the presentation layer currently displays.
type State struct {
	Config  *models.NodeConfig
	Error   string
	Loading bool
}

// Client runs lookups for a single query context (one browser session or one terminal run).
type Client struct {
	manager  NodeManager
	notifier Notifier
	recorder Recorder
	current  *models.NodeConfig
	lastErr  string
	mu       sync.RWMutex
	inFlight atomic.Bool
}

// New returns a Client dispatching lookups to manager.
func New(manager NodeManager, opts ...Option) *Client {
	c := &Client{
		manager:  manager,
		notifier: NotifierFunc(func(Notification) {}),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// InFlight reports whether a lookup is outstanding.
func (c *Client) InFlight() bool {
	return c.inFlight.Load()
}

// State returns a snapshot of the displayed result.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return State{
		Config:  c.current,
		Error:   c.lastErr,
		Loading: c.inFlight.Load(),
	}
}

// Submit looks up the configuration of the node called name.
//
// The only error returned is ErrInFlight; every other fault is normalized into
// the Result. Each terminal outcome replaces the displayed state and raises at
// least one notification.
func (c *Client) Submit(ctx context.Context, name string) (Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return Result{NodeName: strings.TrimSpace(name)}, ErrInFlight
	}
	defer c.inFlight.Store(false)

	start := time.Now()
	name = strings.TrimSpace(name)

	if name == "" {
		res := Result{Outcome: models.OutcomeValidation, Message: ValidationMessage}
		c.fail(res)
		return res, nil
	}

	cfg, err := c.call(ctx, name)
	res := Result{NodeName: name, Duration: time.Since(start)}

	if err != nil {
		res.Outcome, res.Message = Describe(err)
		log.Debug().
			Err(err).
			Str("node", name).
			Str("outcome", string(res.Outcome)).
			Msg("Node lookup failed")

		c.fail(res)
		return res, nil
	}

	res.Config = cfg
	res.Outcome = models.OutcomeSuccess
	if cfg.PortMapping == nil {
		res.Outcome = models.OutcomeNoPortMapping
	}

	c.mu.Lock()
	c.current = cfg
	c.lastErr = ""
	c.mu.Unlock()

	displayName := cfg.Name
	if displayName == "" {
		displayName = name
	}

	c.notifier.Notify(Notification{
		Level:   LevelSuccess,
		Message: fmt.Sprintf("Loaded configuration for node %s", displayName),
	})
	if cfg.PortMapping == nil {
		c.notifier.Notify(Notification{
			Level:   LevelInfo,
			Message: fmt.Sprintf("Node %s has no port mapping configured", displayName),
		})
	}

	c.record(res)
	return res, nil
}

// call dispatches the remote lookup, converting panics and empty responses into errors.
func (c *Client) call(ctx context.Context, name string) (cfg *models.NodeConfig, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("node", name).Msg("Manager call panicked")
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = errUnrecognized
			}
		}
	}()

	cfg, err = c.manager.GetNodeConfig(ctx, name)
	if err == nil && cfg == nil {
		err = errUnrecognized
	}

	return cfg, err
}

func (c *Client) fail(res Result) {
	c.mu.Lock()
	c.current = nil
	c.lastErr = res.Message
	c.mu.Unlock()

	c.notifier.Notify(Notification{Level: LevelError, Message: res.Message})
	c.record(res)
}

func (c *Client) record(res Result) {
	if c.recorder == nil {
		return
	}

	err := c.recorder.RecordLookup(models.Lookup{
		NodeName:   res.NodeName,
		Outcome:    res.Outcome,
		Message:    res.Message,
		DurationMs: res.Duration.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Str("node", res.NodeName).Msg("Failed to record lookup")
	}
}

// Describe classifies err and extracts the message shown to the user.
// RPC errors yield their message text, other errors their own description,
// and faults without one yield FallbackMessage.
func Describe(err error) (models.Outcome, string) {
	if err == nil || errors.Is(err, errUnrecognized) {
		return models.OutcomeTransport, FallbackMessage
	}

	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		// connect also reports local dial and decode failures as *connect.Error
		outcome := models.OutcomeTransport
		if connect.IsWireError(connectErr) {
			outcome = models.OutcomeRemote
		}
		if msg := connectErr.Message(); msg != "" {
			return outcome, msg
		}
		return outcome, connectErr.Code().String()
	}

	if msg := err.Error(); msg != "" {
		return models.OutcomeTransport, msg
	}

	return models.OutcomeTransport, FallbackMessage
}
