package rpc

import (
	"context"
	"errors"

	"chorddht/internal/dhterr"
	"chorddht/internal/ring"
	"chorddht/internal/store"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const serviceName = "chorddht.rpc.Peer"

// Handler is implemented by the node's protocol engine and answers the
// RPC surface published to peers (see the operation table this mirrors),
// plus the client-facing locate-and-replicate operations that let an
// external client reach quorum semantics by contacting any one node.
type Handler interface {
	Put(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Delete(ctx context.Context, key string) (found bool, err error)
	FindSuccessor(ctx context.Context, id ring.ID) (ring.NodeInfo, error)
	GetSuccessor(ctx context.Context) (ring.NodeInfo, error)
	GetPredecessor(ctx context.Context) (ring.NodeInfo, bool, error)
	Notify(ctx context.Context, candidate ring.NodeInfo) error
	ClosestPrecedingFinger(ctx context.Context, id ring.ID) (ring.NodeInfo, bool, error)
	Ping(ctx context.Context) error
	TransferKeys(ctx context.Context, pairs []store.Entry) error

	ClientPut(ctx context.Context, key, value string) error
	ClientGet(ctx context.Context, key string) (string, error)
	ClientDelete(ctx context.Context, key string) error
}

func toWire(n ring.NodeInfo) NodeInfoWire {
	return NodeInfoWire{ID: n.ID.String(), Address: n.Address}
}

func fromWire(space ring.Space, w NodeInfoWire) (ring.NodeInfo, error) {
	id, err := space.FromString(w.ID)
	if err != nil {
		return ring.NodeInfo{}, err
	}
	return ring.NodeInfo{ID: id, Address: w.Address}, nil
}

// toStatus classifies an internal error into a gRPC status, so transport
// failures are never confused with semantic answers on the wire.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dhterr.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, dhterr.ErrNotJoined):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, dhterr.ErrRoutingExhausted):
		return status.Error(codes.Internal, err.Error())
	case errors.Is(err, dhterr.ErrUnavailable), errors.Is(err, dhterr.ErrTransport):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func putHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(PutRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	run := func(ctx context.Context, req any) (any, error) {
		r := req.(*PutRequest)
		if err := srv.(Handler).Put(ctx, r.Key, r.Value); err != nil {
			return nil, toStatus(err)
		}
		return &PutResponse{Success: true}, nil
	}
	if interceptor == nil {
		return run(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Put"}
	return interceptor(ctx, req, info, run)
}

func getHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(GetRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	run := func(ctx context.Context, req any) (any, error) {
		r := req.(*GetRequest)
		value, found, err := srv.(Handler).Get(ctx, r.Key)
		if err != nil {
			return nil, toStatus(err)
		}
		return &GetResponse{Found: found, Value: value}, nil
	}
	if interceptor == nil {
		return run(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Get"}
	return interceptor(ctx, req, info, run)
}

func deleteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(DeleteRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	run := func(ctx context.Context, req any) (any, error) {
		r := req.(*DeleteRequest)
		found, err := srv.(Handler).Delete(ctx, r.Key)
		if err != nil {
			return nil, toStatus(err)
		}
		return &DeleteResponse{Success: found}, nil
	}
	if interceptor == nil {
		return run(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Delete"}
	return interceptor(ctx, req, info, run)
}

func findSuccessorHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(FindSuccessorRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	run := func(ctx context.Context, req any) (any, error) {
		r := req.(*FindSuccessorRequest)
		h := srv.(Handler)
		space := handlerSpace(h)
		id, err := space.FromString(r.TargetID)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		n, err := h.FindSuccessor(ctx, id)
		if err != nil {
			return nil, toStatus(err)
		}
		return &FindSuccessorResponse{Node: toWire(n)}, nil
	}
	if interceptor == nil {
		return run(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/FindSuccessor"}
	return interceptor(ctx, req, info, run)
}

func getSuccessorHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(Empty)
	if err := dec(req); err != nil {
		return nil, err
	}
	run := func(ctx context.Context, req any) (any, error) {
		n, err := srv.(Handler).GetSuccessor(ctx)
		if err != nil {
			return nil, toStatus(err)
		}
		return &NodeResponse{Node: toWire(n)}, nil
	}
	if interceptor == nil {
		return run(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetSuccessor"}
	return interceptor(ctx, req, info, run)
}

func getPredecessorHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(Empty)
	if err := dec(req); err != nil {
		return nil, err
	}
	run := func(ctx context.Context, req any) (any, error) {
		n, has, err := srv.(Handler).GetPredecessor(ctx)
		if err != nil {
			return nil, toStatus(err)
		}
		return &PredecessorResponse{Node: toWire(n), HasPredecessor: has}, nil
	}
	if interceptor == nil {
		return run(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetPredecessor"}
	return interceptor(ctx, req, info, run)
}

func notifyHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(NotifyRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	run := func(ctx context.Context, req any) (any, error) {
		r := req.(*NotifyRequest)
		h := srv.(Handler)
		n, err := fromWire(handlerSpace(h), r.Node)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		if err := h.Notify(ctx, n); err != nil {
			return nil, toStatus(err)
		}
		return &NotifyResponse{}, nil
	}
	if interceptor == nil {
		return run(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Notify"}
	return interceptor(ctx, req, info, run)
}

func closestPrecedingFingerHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(ClosestPrecedingFingerRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	run := func(ctx context.Context, req any) (any, error) {
		r := req.(*ClosestPrecedingFingerRequest)
		h := srv.(Handler)
		id, err := handlerSpace(h).FromString(r.TargetID)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		n, has, err := h.ClosestPrecedingFinger(ctx, id)
		if err != nil {
			return nil, toStatus(err)
		}
		return &ClosestPrecedingFingerResponse{Node: toWire(n), Has: has}, nil
	}
	if interceptor == nil {
		return run(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ClosestPrecedingFinger"}
	return interceptor(ctx, req, info, run)
}

func pingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(Empty)
	if err := dec(req); err != nil {
		return nil, err
	}
	run := func(ctx context.Context, req any) (any, error) {
		if err := srv.(Handler).Ping(ctx); err != nil {
			return nil, toStatus(err)
		}
		return &PingResponse{Alive: true}, nil
	}
	if interceptor == nil {
		return run(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Ping"}
	return interceptor(ctx, req, info, run)
}

func transferKeysHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(TransferKeysRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	run := func(ctx context.Context, req any) (any, error) {
		r := req.(*TransferKeysRequest)
		if err := srv.(Handler).TransferKeys(ctx, r.Pairs); err != nil {
			return nil, toStatus(err)
		}
		return &TransferKeysResponse{Success: true}, nil
	}
	if interceptor == nil {
		return run(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/TransferKeys"}
	return interceptor(ctx, req, info, run)
}

func clientPutHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(ClientPutRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	run := func(ctx context.Context, req any) (any, error) {
		r := req.(*ClientPutRequest)
		if err := srv.(Handler).ClientPut(ctx, r.Key, r.Value); err != nil {
			return nil, toStatus(err)
		}
		return &ClientPutResponse{Success: true}, nil
	}
	if interceptor == nil {
		return run(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ClientPut"}
	return interceptor(ctx, req, info, run)
}

func clientGetHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(ClientGetRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	run := func(ctx context.Context, req any) (any, error) {
		r := req.(*ClientGetRequest)
		value, err := srv.(Handler).ClientGet(ctx, r.Key)
		if errors.Is(err, dhterr.ErrNotFound) {
			return &ClientGetResponse{Found: false}, nil
		}
		if err != nil {
			return nil, toStatus(err)
		}
		return &ClientGetResponse{Found: true, Value: value}, nil
	}
	if interceptor == nil {
		return run(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ClientGet"}
	return interceptor(ctx, req, info, run)
}

func clientDeleteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(ClientDeleteRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	run := func(ctx context.Context, req any) (any, error) {
		r := req.(*ClientDeleteRequest)
		if err := srv.(Handler).ClientDelete(ctx, r.Key); err != nil {
			return nil, toStatus(err)
		}
		return &ClientDeleteResponse{Success: true}, nil
	}
	if interceptor == nil {
		return run(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ClientDelete"}
	return interceptor(ctx, req, info, run)
}

// spaceProvider lets the server recover the ring's bit width from the
// Handler without the rpc package depending on the node package.
type spaceProvider interface {
	Space() ring.Space
}

func handlerSpace(h Handler) ring.Space {
	if sp, ok := h.(spaceProvider); ok {
		return sp.Space()
	}
	return ring.NewSpace(160)
}

// ServiceDesc is the hand-registered gRPC service description standing
// in for generated protobuf service code.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Handler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Put", Handler: putHandler},
		{MethodName: "Get", Handler: getHandler},
		{MethodName: "Delete", Handler: deleteHandler},
		{MethodName: "FindSuccessor", Handler: findSuccessorHandler},
		{MethodName: "GetSuccessor", Handler: getSuccessorHandler},
		{MethodName: "GetPredecessor", Handler: getPredecessorHandler},
		{MethodName: "Notify", Handler: notifyHandler},
		{MethodName: "ClosestPrecedingFinger", Handler: closestPrecedingFingerHandler},
		{MethodName: "Ping", Handler: pingHandler},
		{MethodName: "TransferKeys", Handler: transferKeysHandler},
		{MethodName: "ClientPut", Handler: clientPutHandler},
		{MethodName: "ClientGet", Handler: clientGetHandler},
		{MethodName: "ClientDelete", Handler: clientDeleteHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chorddht/internal/rpc",
}

// RegisterPeerServer registers h as the handler for the Peer service on
// s.
func RegisterPeerServer(s *grpc.Server, h Handler) {
	s.RegisterService(&ServiceDesc, h)
}
