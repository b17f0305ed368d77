// Package rpc binds the process to the node manager over a gRPC-Web transport.
package rpc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/laval/internal/config"
	"github.com/woozymasta/laval/internal/models"
)

// GetNodeConfigProcedure is the full procedure path of NodeManager.GetNodeConfig.
const GetNodeConfigProcedure = "/manager.v1.NodeManager/GetNodeConfig"

// Channel is the single outbound connection to the node manager.
// It is created once at startup and shared by every query client; it holds no per-request state.
type Channel struct {
	getNodeConfig *connect.Client[GetNodeConfigRequest, GetNodeConfigResponse]
	baseURL       string
}

// New creates the manager channel for the configured base URL.
// A blank URL selects config.DefaultManagerURL.
func New(cfg config.Manager) (*Channel, error) {
	baseURL, err := config.NormalizeManagerURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}

	return &Channel{
		baseURL: baseURL,
		getNodeConfig: connect.NewClient[GetNodeConfigRequest, GetNodeConfigResponse](
			httpClient,
			baseURL+GetNodeConfigProcedure,
			connect.WithGRPCWeb(),
			connect.WithCodec(protoCodec{}),
			connect.WithInterceptors(loggingInterceptor()),
		),
	}, nil
}

// BaseURL returns the manager base URL the channel is bound to.
func (c *Channel) BaseURL() string {
	return c.baseURL
}

// GetNodeConfig asks the manager for the configuration of the node called name.
// Errors are returned as produced by the transport: *connect.Error for RPC failures.
func (c *Channel) GetNodeConfig(ctx context.Context, name string) (*models.NodeConfig, error) {
	res, err := c.getNodeConfig.CallUnary(ctx, connect.NewRequest(&GetNodeConfigRequest{Name: name}))
	if err != nil {
		return nil, err
	}

	return res.Msg.toModel(), nil
}

// loggingInterceptor logs every manager call at debug level.
func loggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			res, err := next(ctx, req)

			event := log.Debug().
				Str("procedure", req.Spec().Procedure).
				Dur("duration", time.Since(start))
			if err != nil {
				event = event.Err(err).Str("code", connect.CodeOf(err).String())
			}
			event.Msg("Manager call finished")

			return res, err
		}
	}
}

// protoCodec encodes manager.v1 messages in the binary protobuf format.
type protoCodec struct{}

func (protoCodec) Name() string { return "proto" }

func (protoCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("proto codec: unsupported message type %T", v)
	}

	return m.marshalWire(), nil
}

func (protoCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("proto codec: unsupported message type %T", v)
	}

	return m.unmarshalWire(data)
}
