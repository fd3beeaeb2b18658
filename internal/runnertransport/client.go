package runnertransport

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/purc-go/purc/internal/perr"
	"github.com/purc-go/purc/internal/variant"
)

// Client implements element.Requester by routing a `request` element's
// target either to a co-located Server (no network hop, for runners
// sharing this process) or to a registered peer over Deliver (spec.md
// §5's cross-runner case, using the composite-request-id scheme's
// runner-atom field to decide which).
type Client struct {
	myRunnerID string
	myAddr     string

	local *Server

	mu    sync.Mutex
	peers map[string]string // runnerID -> "host:port"
	conns map[string]*grpc.ClientConn
}

// NewClient creates a Client identifying itself as runnerID, reachable
// at myAddr for reply callbacks. myAddr may be empty if this process
// never accepts inbound Deliver calls (request-only, no reply capacity).
func NewClient(runnerID, myAddr string) *Client {
	return &Client{
		myRunnerID: runnerID,
		myAddr:     myAddr,
		peers:      make(map[string]string),
		conns:      make(map[string]*grpc.ClientConn),
	}
}

// AttachLocal lets c deliver to a co-located Server without dialing
// itself over loopback TCP.
func (c *Client) AttachLocal(s *Server) { c.local = s }

// Addr returns the listen address c advertises to peers as its ReplyAddr.
func (c *Client) Addr() string { return c.myAddr }

// AddPeer registers addr as where Deliver calls targeting runnerID
// should be dialed.
func (c *Client) AddPeer(runnerID, addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.peers[runnerID] = addr
}

func (c *Client) connFor(addr string) (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conn, ok := c.conns[addr]; ok {
		return conn, nil
	}
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, err
	}
	c.conns[addr] = conn
	return conn, nil
}

func (c *Client) deliver(ctx context.Context, addr string, req *DeliverRequest) (*DeliverResponse, error) {
	if c.local != nil {
		if req.Kind == "RESPONSE" {
			if _, _, err := parseTarget(req.Target); err == nil {
				return c.local.Deliver(ctx, req)
			}
		} else if rid, _, _ := parseTarget(req.Target); c.local.hasRunner(rid) {
			return c.local.Deliver(ctx, req)
		}
	}

	conn, err := c.connFor(addr)
	if err != nil {
		return nil, err
	}
	resp := new(DeliverResponse)
	if err := conn.Invoke(ctx, "/purc.runnertransport.Transport/Deliver", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SendRequest implements element.Requester (spec.md §4.G): it resolves
// target to a runner, marshals payload to JSON, and posts a REQUEST leg.
// It does not block for the reply — internal/element/request.go already
// registered a local observer for the returned request id before a
// reply can arrive.
func (c *Client) SendRequest(target, verb string, payload *variant.Variant) (string, *perr.Error) {
	runnerID, _, terr := parseTarget(target)
	if terr != nil {
		return "", perr.New(perr.InvalidValue)
	}

	payloadJSON, perrv := payload.ToJSON()
	if perrv != nil {
		return "", perrv
	}

	reqID := uuid.NewString()
	dreq := &DeliverRequest{
		Kind:        "REQUEST",
		Target:      target,
		Verb:        verb,
		PayloadJSON: payloadJSON,
		RequestID:   reqID,
		ReplyAddr:   c.myAddr,
	}

	addr, hasPeer := c.lookupPeer(runnerID)
	if !hasPeer && (c.local == nil || !c.local.hasRunner(runnerID)) {
		return "", perr.New(perr.EntityNotFound)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp, err := c.deliver(ctx, addr, dreq)
	if err != nil {
		return "", perr.New(perr.RequestFailed)
	}
	if !resp.Accepted {
		return "", perr.New(perr.RequestFailed)
	}
	return reqID, nil
}

// Reply delivers payload back to whichever runner issued requestID,
// identified by replyAddr/replyRunnerID as recorded on the inbound
// REQUEST leg. Called once the local handling of a REQUEST event has
// produced a result (there is no dedicated HVML element for this in
// spec.md; a `request`-observing handler calls it directly).
func (c *Client) Reply(replyAddr, replyRunnerID, requestID string, payload *variant.Variant) *perr.Error {
	payloadJSON, perrv := payload.ToJSON()
	if perrv != nil {
		return perrv
	}
	dreq := &DeliverRequest{
		Kind:        "RESPONSE",
		Target:      replyRunnerID,
		PayloadJSON: payloadJSON,
		RequestID:   requestID,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp, err := c.deliver(ctx, replyAddr, dreq)
	if err != nil {
		return perr.New(perr.RequestFailed)
	}
	if !resp.Accepted {
		return perr.New(perr.RequestFailed)
	}
	return nil
}

func (c *Client) lookupPeer(runnerID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	addr, ok := c.peers[runnerID]
	return addr, ok
}
