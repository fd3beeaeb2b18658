package runnertransport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/grpc"

	"github.com/purc-go/purc/internal/logging"
	"github.com/purc-go/purc/internal/perr"
	"github.com/purc-go/purc/internal/variant"
)

// TransportServer is the RPC surface a Server implements; kept as an
// interface so the hand-written ServiceDesc below can dispatch to it the
// way protoc-gen-go dispatches to a generated *Server.
type TransportServer interface {
	Deliver(ctx context.Context, req *DeliverRequest) (*DeliverResponse, error)
}

// RunnerHandle is the subset of *runner.Runner a Server needs to route a
// Deliver call locally. Declared here rather than importing internal/runner
// directly: internal/runner constructs a Client/Server to wire
// element.Runtime.Requester, and Go forbids the resulting import cycle.
// *runner.Runner satisfies this via the adapter methods in runner.go.
type RunnerHandle interface {
	FromJSON(data []byte) (*variant.Variant, *perr.Error)
	PostRequestEvent(destCID uint64, requestID, verb string, payload *variant.Variant)
	DispatchResponse(requestID string, payload *variant.Variant)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: "purc.runnertransport.Transport",
	HandlerType: (*TransportServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Deliver", Handler: deliverHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "runnertransport",
}

func deliverHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DeliverRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransportServer).Deliver(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/purc.runnertransport.Transport/Deliver"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TransportServer).Deliver(ctx, req.(*DeliverRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		logging.Op().Error("runnertransport request failed", "method", info.FullMethod, "error", err)
	}
	return resp, err
}

// Server is one runner's Deliver endpoint. It owns no network state of
// its own beyond the listener; request/response routing happens against
// the local RunnerHandle(s) registered under their runner id, the way
// event.RequestID.Runner names which runner a composite request id
// belongs to (component H, spec.md §5).
type Server struct {
	mu      sync.RWMutex
	runners map[string]RunnerHandle

	grpcServer *grpc.Server
}

// NewServer creates an empty Deliver endpoint; Register each runner it
// should accept inbound requests for before calling Start.
func NewServer() *Server {
	return &Server{runners: make(map[string]RunnerHandle)}
}

// Register makes r reachable under runnerID for inbound Deliver calls
// targeting "<runnerID>/crtn/<cid>".
func (s *Server) Register(runnerID string, r RunnerHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runners[runnerID] = r
}

// hasRunner reports whether runnerID is registered on this server, used
// by Client to skip the network for co-located runners.
func (s *Server) hasRunner(runnerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.runners[runnerID]
	return ok
}

// Start listens on addr and serves Deliver until Stop is called.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor))
	s.grpcServer.RegisterService(&serviceDesc, s)

	logging.Op().Info("runnertransport server started", "addr", addr)

	go func() {
		if err := s.grpcServer.Serve(lis); err != nil {
			logging.Op().Error("runnertransport server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
}

// Deliver implements TransportServer: a REQUEST leg posts a `REQUEST`
// event to the target coroutine's queue (spec.md's worked example —
// "B receives an event of type REQUEST subtype verb payload"); a
// RESPONSE leg resolves whichever coroutine is waiting on RequestID via
// DispatchResponse, which needs no destination cid because the waiter
// registered by request id alone (internal/element/request.go's
// RegisterInner keys on (cid, reqID), and observer.Registry.DispatchGlobal
// scans every cid for a matching reqID).
func (s *Server) Deliver(ctx context.Context, req *DeliverRequest) (*DeliverResponse, error) {
	runnerID, cid, err := parseTarget(req.Target)
	if err != nil {
		return &DeliverResponse{Accepted: false, Error: err.Error()}, nil
	}

	s.mu.RLock()
	r := s.runners[runnerID]
	s.mu.RUnlock()
	if r == nil {
		return &DeliverResponse{Accepted: false, Error: fmt.Sprintf("unknown runner %q", runnerID)}, nil
	}

	payload, perrv := r.FromJSON(req.PayloadJSON)
	if perrv != nil {
		return &DeliverResponse{Accepted: false, Error: perrv.Error()}, nil
	}

	switch req.Kind {
	case "RESPONSE":
		r.DispatchResponse(req.RequestID, payload)
	default: // "REQUEST"
		r.PostRequestEvent(cid, req.RequestID, req.Verb, payload)
	}

	return &DeliverResponse{Accepted: true}, nil
}

// parseTarget resolves a `request on="..."` target into a runner id and
// destination coroutine id. Three forms are accepted (spec.md §4.G lists
// "coroutine id, HVML URL, CSS selector on document, or $RDR" without
// pinning a cross-runner wire format, so this repository picks one):
//
//   - "~/~/~/crtn/<cid>"       — local runner, explicit coroutine id
//   - "<runnerID>/crtn/<cid>"  — named runner (local or a Server.Register
//     peer), explicit coroutine id
//   - "<runnerID>"             — no "/crtn/" part: the runner itself, with
//     coroutine id 0 (used by RESPONSE legs)
//
// CSS-selector and $RDR targets are not cross-runner requests and are
// resolved by internal/element before a Requester is ever called.
func parseTarget(target string) (runnerID string, cid uint64, err error) {
	const marker = "/crtn/"
	idx := strings.LastIndex(target, marker)
	if idx < 0 {
		// RESPONSE legs address a runner, not a coroutine (see Deliver's
		// RESPONSE case, which resolves the waiter via DispatchResponse).
		return target, 0, nil
	}
	prefix := target[:idx]
	cidStr := target[idx+len(marker):]

	n, convErr := strconv.ParseUint(cidStr, 10, 64)
	if convErr != nil {
		return "", 0, fmt.Errorf("invalid coroutine id in target %q: %w", target, convErr)
	}

	if prefix == "~/~/~" || prefix == "" {
		return "", n, nil
	}
	return prefix, n, nil
}
