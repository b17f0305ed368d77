package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/woozymasta/laval/internal/models"
)

// NodeManagerService is the manager side of the GetNodeConfig contract.
type NodeManagerService interface {
	GetNodeConfig(ctx context.Context, name string) (*models.NodeConfig, error)
}

// NewNodeManagerHandler serves svc over gRPC, gRPC-Web and Connect.
// It returns the path to mount the handler on.
func NewNodeManagerHandler(svc NodeManagerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(protoCodec{})}, opts...)

	handler := connect.NewUnaryHandler(
		GetNodeConfigProcedure,
		func(ctx context.Context, req *connect.Request[GetNodeConfigRequest]) (*connect.Response[GetNodeConfigResponse], error) {
			cfg, err := svc.GetNodeConfig(ctx, req.Msg.Name)
			if err != nil {
				return nil, err
			}
			return connect.NewResponse(responseFromModel(cfg)), nil
		},
		opts...,
	)

	return GetNodeConfigProcedure, handler
}
