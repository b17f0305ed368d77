// Package fake provides an in-memory node manager for local development and tests.
package fake

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/laval/internal/models"
	"github.com/woozymasta/laval/internal/rpc"
)

// Manager answers GetNodeConfig from an in-memory node table.
type Manager struct {
	nodes map[string]models.NodeConfig
	mu    sync.RWMutex
}

// NewManager returns a Manager preloaded with sample nodes covering every display state.
func NewManager() *Manager {
	m := &Manager{nodes: make(map[string]models.NodeConfig)}

	m.Put(models.NodeConfig{
		Name: "edge-01",
		PortMapping: &models.PortMapping{
			Mode:       models.ModeServer,
			ConfigJSON: `{"server":{"bind_addr":"0.0.0.0:2333","services":{"ssh":{"bind_addr":"0.0.0.0:5202","token":"change-me"}}}}`,
		},
	})
	m.Put(models.NodeConfig{Name: "edge-02"})
	m.Put(models.NodeConfig{
		Name:        "edge-03",
		PortMapping: &models.PortMapping{Mode: models.ModeClient},
	})
	m.Put(models.NodeConfig{
		Name:        "edge-04",
		PortMapping: &models.PortMapping{Mode: models.ModeClient, ConfigJSON: "not json"},
	})

	return m
}

// Put stores or replaces a node.
func (m *Manager) Put(cfg models.NodeConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cfg.PortMapping != nil {
		pm := *cfg.PortMapping
		cfg.PortMapping = &pm
	}
	m.nodes[cfg.Name] = cfg
}

// GetNodeConfig returns a copy of the named node, or a not_found error.
func (m *Manager) GetNodeConfig(_ context.Context, name string) (*models.NodeConfig, error) {
	m.mu.RLock()
	cfg, ok := m.nodes[name]
	m.mu.RUnlock()

	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("node '%s' not found", name))
	}

	if cfg.PortMapping != nil {
		pm := *cfg.PortMapping
		cfg.PortMapping = &pm
	}

	return &cfg, nil
}

// GenerateNodes adds count randomized nodes named node-0000, node-0001, ...
func (m *Manager) GenerateNodes(count int) {
	modes := []models.Mode{models.ModeServer, models.ModeClient, models.ModeUnspecified}
	services := []string{"ssh", "http", "rdp", "metrics", "mqtt"}

	for i := 0; i < count; i++ {
		cfg := models.NodeConfig{Name: fmt.Sprintf("node-%04d", i)}

		// 20% of nodes without a port mapping
		if rand.Float32() >= 0.2 {
			mode := modes[rand.Intn(len(modes))]
			service := services[rand.Intn(len(services))]
			port := 2000 + rand.Intn(60000)

			var payload string
			switch mode {
			case models.ModeServer:
				payload = fmt.Sprintf(`{"server":{"bind_addr":"0.0.0.0:2333","services":{%q:{"bind_addr":"0.0.0.0:%d"}}}}`, service, port)
			case models.ModeClient:
				payload = fmt.Sprintf(`{"client":{"remote_addr":"gateway:2333","services":{%q:{"local_addr":"127.0.0.1:%d"}}}}`, service, port)
			}

			cfg.PortMapping = &models.PortMapping{Mode: mode, ConfigJSON: payload}
		}

		m.Put(cfg)
	}
}

// Serve starts a gRPC-Web endpoint for m on addr. Shut it down with the returned server.
func Serve(addr string, m *Manager) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(rpc.NewNodeManagerHandler(m))

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		log.Warn().Str("address", addr).Msg("Fake node manager listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Fake node manager failed")
		}
	}()

	return srv
}
