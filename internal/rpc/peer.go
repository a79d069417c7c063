package rpc

import (
	"context"
	"time"

	"chorddht/internal/ring"
	"chorddht/internal/store"

	"google.golang.org/grpc"
)

// Per-call timeouts, as recommended by the remote-peer façade contract:
// 5s for routing calls, 2s for Ping, 10s for bulk transfer.
const (
	RoutingTimeout  = 5 * time.Second
	PingTimeout     = 2 * time.Second
	TransferTimeout = 10 * time.Second
)

// Peer is a typed client-side proxy over one peer connection. It
// implements the node package's PeerClient interface structurally — the
// node package never imports this one.
type Peer struct {
	conn  *grpc.ClientConn
	addr  string
	space ring.Space
}

// NewPeer wraps an established connection.
func NewPeer(conn *grpc.ClientConn, addr string, space ring.Space) *Peer {
	return &Peer{conn: conn, addr: addr, space: space}
}

// Address returns the peer's transport locator.
func (p *Peer) Address() string { return p.addr }

// Close is a no-op: the underlying connection is owned by the Pool that
// dialed it (see GRPCTransport.Dial), not by this call-scoped façade.
// The node package closes its peer handle after every RPC, so tearing
// down the shared connection here would defeat pooling; Pool.CloseConn
// / Pool.CloseAll own the real connection lifecycle.
func (p *Peer) Close() error { return nil }

func (p *Peer) invoke(ctx context.Context, timeout time.Duration, method string, req, resp any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.conn.Invoke(ctx, "/"+serviceName+"/"+method, req, resp)
}

func (p *Peer) FindSuccessor(ctx context.Context, id ring.ID) (ring.NodeInfo, error) {
	resp := new(FindSuccessorResponse)
	if err := p.invoke(ctx, RoutingTimeout, "FindSuccessor", &FindSuccessorRequest{TargetID: id.String()}, resp); err != nil {
		return ring.NodeInfo{}, err
	}
	return fromWire(p.space, resp.Node)
}

func (p *Peer) GetSuccessor(ctx context.Context) (ring.NodeInfo, error) {
	resp := new(NodeResponse)
	if err := p.invoke(ctx, RoutingTimeout, "GetSuccessor", &Empty{}, resp); err != nil {
		return ring.NodeInfo{}, err
	}
	return fromWire(p.space, resp.Node)
}

func (p *Peer) GetPredecessor(ctx context.Context) (ring.NodeInfo, bool, error) {
	resp := new(PredecessorResponse)
	if err := p.invoke(ctx, RoutingTimeout, "GetPredecessor", &Empty{}, resp); err != nil {
		return ring.NodeInfo{}, false, err
	}
	if !resp.HasPredecessor {
		return ring.NodeInfo{}, false, nil
	}
	n, err := fromWire(p.space, resp.Node)
	return n, true, err
}

func (p *Peer) Notify(ctx context.Context, self ring.NodeInfo) error {
	resp := new(NotifyResponse)
	return p.invoke(ctx, RoutingTimeout, "Notify", &NotifyRequest{Node: toWire(self)}, resp)
}

func (p *Peer) ClosestPrecedingFinger(ctx context.Context, id ring.ID) (ring.NodeInfo, bool, error) {
	resp := new(ClosestPrecedingFingerResponse)
	if err := p.invoke(ctx, RoutingTimeout, "ClosestPrecedingFinger", &ClosestPrecedingFingerRequest{TargetID: id.String()}, resp); err != nil {
		return ring.NodeInfo{}, false, err
	}
	if !resp.Has {
		return ring.NodeInfo{}, false, nil
	}
	n, err := fromWire(p.space, resp.Node)
	return n, true, err
}

func (p *Peer) Ping(ctx context.Context) error {
	resp := new(PingResponse)
	return p.invoke(ctx, PingTimeout, "Ping", &Empty{}, resp)
}

func (p *Peer) TransferKeys(ctx context.Context, pairs []store.Entry) error {
	resp := new(TransferKeysResponse)
	return p.invoke(ctx, TransferTimeout, "TransferKeys", &TransferKeysRequest{Pairs: pairs}, resp)
}

func (p *Peer) PutLocal(ctx context.Context, key, value string) error {
	resp := new(PutResponse)
	return p.invoke(ctx, RoutingTimeout, "Put", &PutRequest{Key: key, Value: value}, resp)
}

func (p *Peer) GetLocal(ctx context.Context, key string) (string, bool, error) {
	resp := new(GetResponse)
	if err := p.invoke(ctx, RoutingTimeout, "Get", &GetRequest{Key: key}, resp); err != nil {
		return "", false, err
	}
	return resp.Value, resp.Found, nil
}

func (p *Peer) DeleteLocal(ctx context.Context, key string) (bool, error) {
	resp := new(DeleteResponse)
	if err := p.invoke(ctx, RoutingTimeout, "Delete", &DeleteRequest{Key: key}, resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

// ClientPut drives the replicated PUT path on the dialed node: locate
// the owner, fan out to its replica chain, return once a quorum acks.
func (p *Peer) ClientPut(ctx context.Context, key, value string) error {
	resp := new(ClientPutResponse)
	return p.invoke(ctx, TransferTimeout, "ClientPut", &ClientPutRequest{Key: key, Value: value}, resp)
}

// ClientGet drives the replicated GET path on the dialed node.
func (p *Peer) ClientGet(ctx context.Context, key string) (string, bool, error) {
	resp := new(ClientGetResponse)
	if err := p.invoke(ctx, TransferTimeout, "ClientGet", &ClientGetRequest{Key: key}, resp); err != nil {
		return "", false, err
	}
	return resp.Value, resp.Found, nil
}

// ClientDelete drives the replicated DELETE path on the dialed node.
func (p *Peer) ClientDelete(ctx context.Context, key string) error {
	resp := new(ClientDeleteResponse)
	return p.invoke(ctx, TransferTimeout, "ClientDelete", &ClientDeleteRequest{Key: key}, resp)
}
