package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/laval/internal/models"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubManager answers with a fixed response and remembers the names it was asked for.
type stubManager struct {
	respond func(name string) (*models.NodeConfig, error)
	names   []string
	mu      sync.Mutex
}

func (s *stubManager) GetNodeConfig(_ context.Context, name string) (*models.NodeConfig, error) {
	s.mu.Lock()
	s.names = append(s.names, name)
	s.mu.Unlock()

	return s.respond(name)
}

func (s *stubManager) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

type memRecorder struct {
	lookups []models.Lookup
	err     error
}

func (r *memRecorder) RecordLookup(l models.Lookup) error {
	r.lookups = append(r.lookups, l)
	return r.err
}

func returns(cfg *models.NodeConfig, err error) func(string) (*models.NodeConfig, error) {
	return func(string) (*models.NodeConfig, error) { return cfg, err }
}

func newTestClient(manager NodeManager) (*Client, *Buffer) {
	notes := &Buffer{}
	return New(manager, WithNotifier(notes)), notes
}

func TestSubmitRejectsBlankNames(t *testing.T) {
	for _, input := range []string{"", " ", "\t\n ", "\u00a0\u2003"} {
		manager := &stubManager{respond: returns(&models.NodeConfig{Name: "x"}, nil)}
		client, notes := newTestClient(manager)

		res, err := client.Submit(context.Background(), input)
		require.NoError(t, err)

		assert.Equal(t, models.OutcomeValidation, res.Outcome, "%q", input)
		assert.Equal(t, ValidationMessage, res.Message)
		assert.Empty(t, manager.calls(), "transport must not be called for %q", input)
		assert.Equal(t, []Notification{{Level: LevelError, Message: ValidationMessage}}, notes.Drain())
		assert.False(t, client.InFlight())
	}
}

func TestSubmitBlankNameClearsPreviousResult(t *testing.T) {
	manager := &stubManager{respond: returns(&models.NodeConfig{
		Name:        "edge-01",
		PortMapping: &models.PortMapping{Mode: models.ModeServer, ConfigJSON: "{}"},
	}, nil)}
	client, notes := newTestClient(manager)

	_, err := client.Submit(context.Background(), "edge-01")
	require.NoError(t, err)
	require.NotNil(t, client.State().Config)
	notes.Drain()

	res, err := client.Submit(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeValidation, res.Outcome)

	state := client.State()
	assert.Nil(t, state.Config)
	assert.Equal(t, ValidationMessage, state.Error)
	assert.Equal(t, []string{"edge-01"}, manager.calls())
	assert.Equal(t, []Notification{{Level: LevelError, Message: ValidationMessage}}, notes.Drain())
}

func TestSubmitTrimsName(t *testing.T) {
	manager := &stubManager{respond: returns(&models.NodeConfig{Name: "edge-01"}, nil)}
	client, _ := newTestClient(manager)

	res, err := client.Submit(context.Background(), "  edge-01  ")
	require.NoError(t, err)

	assert.Equal(t, []string{"edge-01"}, manager.calls())
	assert.Equal(t, "edge-01", res.NodeName)
}

func TestSubmitSuccess(t *testing.T) {
	cfg := &models.NodeConfig{
		Name:        "edge-01",
		PortMapping: &models.PortMapping{Mode: models.ModeServer, ConfigJSON: `{"port":8080}`},
	}
	client, notes := newTestClient(&stubManager{respond: returns(cfg, nil)})

	res, err := client.Submit(context.Background(), "edge-01")
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSuccess, res.Outcome)
	assert.True(t, res.HasPortMapping())
	assert.False(t, res.Failed())
	assert.Same(t, cfg, res.Config)
	assert.Equal(t, []Notification{{Level: LevelSuccess, Message: "Loaded configuration for node edge-01"}}, notes.Drain())

	state := client.State()
	assert.Same(t, cfg, state.Config)
	assert.Empty(t, state.Error)
	assert.False(t, state.Loading)
}

func TestSubmitWithoutPortMappingRaisesInfo(t *testing.T) {
	client, notes := newTestClient(&stubManager{respond: returns(&models.NodeConfig{Name: "edge-02"}, nil)})

	res, err := client.Submit(context.Background(), "edge-02")
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeNoPortMapping, res.Outcome)
	assert.False(t, res.HasPortMapping())
	assert.False(t, res.Failed())
	assert.Equal(t, []Notification{
		{Level: LevelSuccess, Message: "Loaded configuration for node edge-02"},
		{Level: LevelInfo, Message: "Node edge-02 has no port mapping configured"},
	}, notes.Drain())
}

func TestSubmitUsesRequestedNameWhenServerOmitsIt(t *testing.T) {
	client, notes := newTestClient(&stubManager{respond: returns(&models.NodeConfig{}, nil)})

	_, err := client.Submit(context.Background(), "edge-09")
	require.NoError(t, err)

	got := notes.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, "Loaded configuration for node edge-09", got[0].Message)
}

func TestSubmitRemoteErrorClearsPreviousResult(t *testing.T) {
	var fail bool
	manager := &stubManager{respond: func(name string) (*models.NodeConfig, error) {
		if fail {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("node not found"))
		}
		return &models.NodeConfig{Name: name}, nil
	}}
	client, notes := newTestClient(manager)

	_, err := client.Submit(context.Background(), "edge-01")
	require.NoError(t, err)
	require.NotNil(t, client.State().Config)
	notes.Drain()

	fail = true
	res, err := client.Submit(context.Background(), "ghost")
	require.NoError(t, err)

	assert.True(t, res.Failed())
	assert.Equal(t, "node not found", res.Message)
	assert.Nil(t, res.Config)

	state := client.State()
	assert.Nil(t, state.Config)
	assert.Equal(t, "node not found", state.Error)
	assert.Equal(t, []Notification{{Level: LevelError, Message: "node not found"}}, notes.Drain())
}

func TestSubmitFailureKinds(t *testing.T) {
	tests := []struct {
		name    string
		respond func(string) (*models.NodeConfig, error)
		outcome models.Outcome
		message string
	}{
		{
			name:    "transport error",
			respond: returns(nil, errors.New("dial tcp 127.0.0.1:50051: connect: connection refused")),
			outcome: models.OutcomeTransport,
			message: "dial tcp 127.0.0.1:50051: connect: connection refused",
		},
		{
			name:    "wrapped rpc error",
			respond: returns(nil, fmt.Errorf("call: %w", connect.NewError(connect.CodeInternal, errors.New("failed to fetch node")))),
			outcome: models.OutcomeTransport,
			message: "failed to fetch node",
		},
		{
			name:    "rpc error without message",
			respond: returns(nil, connect.NewError(connect.CodePermissionDenied, nil)),
			outcome: models.OutcomeTransport,
			message: "permission_denied",
		},
		{
			name:    "error without text",
			respond: returns(nil, errors.New("")),
			outcome: models.OutcomeTransport,
			message: FallbackMessage,
		},
		{
			name:    "nil response",
			respond: returns(nil, nil),
			outcome: models.OutcomeTransport,
			message: FallbackMessage,
		},
		{
			name:    "panic with value",
			respond: func(string) (*models.NodeConfig, error) { panic(42) },
			outcome: models.OutcomeTransport,
			message: FallbackMessage,
		},
		{
			name:    "panic with error",
			respond: func(string) (*models.NodeConfig, error) { panic(errors.New("decoder exploded")) },
			outcome: models.OutcomeTransport,
			message: "decoder exploded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, notes := newTestClient(&stubManager{respond: tt.respond})

			res, err := client.Submit(context.Background(), "edge-01")
			require.NoError(t, err)

			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, tt.message, res.Message)
			assert.False(t, client.InFlight())
			assert.Equal(t, []Notification{{Level: LevelError, Message: tt.message}}, notes.Drain())
		})
	}
}

func TestSubmitRejectsWhileInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	manager := &stubManager{respond: func(name string) (*models.NodeConfig, error) {
		close(started)
		<-release
		return &models.NodeConfig{Name: name}, nil
	}}
	client, _ := newTestClient(manager)

	done := make(chan Result)
	go func() {
		res, _ := client.Submit(context.Background(), "edge-01")
		done <- res
	}()

	<-started
	assert.True(t, client.InFlight())
	assert.True(t, client.State().Loading)

	_, err := client.Submit(context.Background(), "edge-02")
	assert.ErrorIs(t, err, ErrInFlight)

	_, err = client.Submit(context.Background(), "")
	assert.ErrorIs(t, err, ErrInFlight)

	close(release)

	select {
	case res := <-done:
		assert.Equal(t, models.OutcomeNoPortMapping, res.Outcome)
	case <-time.After(5 * time.Second):
		t.Fatal("lookup did not finish")
	}

	assert.False(t, client.InFlight())
	assert.Equal(t, []string{"edge-01"}, manager.calls())
}

func TestSubmitRecordsOutcomes(t *testing.T) {
	recorder := &memRecorder{err: errors.New("disk full")}
	manager := &stubManager{respond: func(name string) (*models.NodeConfig, error) {
		if name == "ghost" {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("node 'ghost' not found"))
		}
		return &models.NodeConfig{Name: name}, nil
	}}
	client := New(manager, WithRecorder(recorder))

	for _, name := range []string{"edge-02", "ghost", " "} {
		_, err := client.Submit(context.Background(), name)
		require.NoError(t, err)
	}

	require.Len(t, recorder.lookups, 3)
	assert.Equal(t, "edge-02", recorder.lookups[0].NodeName)
	assert.Equal(t, models.OutcomeNoPortMapping, recorder.lookups[0].Outcome)
	assert.Equal(t, models.OutcomeTransport, recorder.lookups[1].Outcome)
	assert.Equal(t, "node 'ghost' not found", recorder.lookups[1].Message)
	assert.Equal(t, models.OutcomeValidation, recorder.lookups[2].Outcome)
	assert.False(t, recorder.lookups[2].CreatedAt.IsZero())
}

func TestBufferDrain(t *testing.T) {
	var b Buffer
	assert.Equal(t, []Notification{}, b.Drain())

	b.Notify(Notification{Level: LevelInfo, Message: "a"})
	b.Notify(Notification{Level: LevelError, Message: "b"})
	assert.Len(t, b.Drain(), 2)
	assert.Empty(t, b.Drain())
}
