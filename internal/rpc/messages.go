// Package rpc is the remote-peer façade: a gRPC service publishing the
// node's RPC surface (Put, Get, Delete, FindSuccessor, GetSuccessor,
// GetPredecessor, Notify, ClosestPrecedingFinger, Ping, TransferKeys) and
// a typed client wrapping each call with a per-call timeout. Ids travel
// the wire as decimal strings to sidestep fixed-width integer limits.
package rpc

import "chorddht/internal/store"

// NodeInfoWire is the wire representation of a ring.NodeInfo.
type NodeInfoWire struct {
	ID      string
	Address string
}

type FindSuccessorRequest struct {
	TargetID string
}

type FindSuccessorResponse struct {
	Node NodeInfoWire
}

type NodeResponse struct {
	Node NodeInfoWire
}

type PredecessorResponse struct {
	Node           NodeInfoWire
	HasPredecessor bool
}

type NotifyRequest struct {
	Node NodeInfoWire
}

type NotifyResponse struct{}

type ClosestPrecedingFingerRequest struct {
	TargetID string
}

type ClosestPrecedingFingerResponse struct {
	Node NodeInfoWire
	Has  bool
}

type PingResponse struct {
	Alive bool
}

type PutRequest struct {
	Key   string
	Value string
}

type PutResponse struct {
	Success bool
	Message string
}

type GetRequest struct {
	Key string
}

type GetResponse struct {
	Found bool
	Value string
}

type DeleteRequest struct {
	Key string
}

type DeleteResponse struct {
	Success bool
}

type TransferKeysRequest struct {
	Pairs []store.Entry
}

type TransferKeysResponse struct {
	Success bool
}

// ClientPutRequest/Response etc. back the client-facing surface: unlike
// Put/Get/Delete (local-only, peer-to-peer), these drive the full
// locate-then-replicate path (Node.ClientPut/ClientGet/ClientDelete) so
// an external client reaches quorum semantics by contacting any single
// node in the ring.
type ClientPutRequest struct {
	Key   string
	Value string
}

type ClientPutResponse struct {
	Success bool
}

type ClientGetRequest struct {
	Key string
}

type ClientGetResponse struct {
	Found bool
	Value string
}

type ClientDeleteRequest struct {
	Key string
}

type ClientDeleteResponse struct {
	Success bool
}

type Empty struct{}
