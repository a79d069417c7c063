package server

import (
	"fmt"
	"net"

	"chorddht/internal/logger"
	"chorddht/internal/node"
	"chorddht/internal/rpc"

	"google.golang.org/grpc"
)

// Server wraps a gRPC server hosting the node's Peer RPC surface.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	lgr        logger.Logger
}

// New creates a gRPC server bound to lis, registering n's Peer service.
// You can pass both grpc.ServerOptions and custom server.Options.
func New(lis net.Listener, n *node.Node, grpcOpts []grpc.ServerOption, srvOpts ...Option) (*Server, error) {
	s := &Server{
		grpcServer: grpc.NewServer(grpcOpts...),
		listener:   lis,
		lgr:        &logger.NopLogger{},
	}
	for _, opt := range srvOpts {
		opt(s)
	}
	rpc.RegisterPeerServer(s.grpcServer, n)
	return s, nil
}

// Start runs the gRPC server and blocks until it stops. It returns any
// error from grpc.Server.Serve.
func (s *Server) Start() error {
	if err := s.grpcServer.Serve(s.listener); err != nil {
		return fmt.Errorf("gRPC server stopped: %w", err)
	}
	return nil
}

// Stop immediately stops the server and closes all active connections.
func (s *Server) Stop() {
	s.grpcServer.Stop()
}

// GracefulStop gracefully shuts down the server, waiting for in-flight
// RPCs to complete.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}
