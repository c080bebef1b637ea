// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/warden-project/warden/lib/codec"
	"github.com/warden-project/warden/lib/platform"
	"github.com/warden-project/warden/lib/registry"
	"github.com/warden-project/warden/lib/shortid"
	"github.com/warden-project/warden/lib/syscallfilter"
)

// readTimeout is how long the server waits for the client to send its
// request. A well-behaved client sends the request immediately after
// connecting.
const readTimeout = 30 * time.Second

// writeTimeout is how long the server waits for the response write.
const writeTimeout = 10 * time.Second

// maxRequestSize bounds a single CBOR request. The dominant payload is
// a load action's application image; 16 MB is generous for embedded
// images.
const maxRequestSize = 16 << 20

// defaultEventCount is how many journal events an events request
// returns when the client does not say.
const defaultEventCount = 32

// Server serves the warden protocol on a Unix socket, dispatching
// requests to a platform. Each connection handles exactly one
// request-response cycle.
type Server struct {
	socketPath string
	platform   *platform.Platform
	version    string
	logger     *slog.Logger

	// activeConnections tracks in-flight handlers for graceful
	// shutdown. Serve waits for all of them before returning.
	activeConnections sync.WaitGroup
}

// NewServer creates a server that will listen on socketPath and answer
// from p. version is reported by the version and status actions.
func NewServer(socketPath string, p *platform.Platform, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		socketPath: socketPath,
		platform:   p,
		version:    version,
		logger:     logger,
	}
}

// Serve accepts connections until ctx is cancelled, then stops
// accepting and waits for in-flight handlers to complete.
//
// Any existing socket file at the configured path is removed before
// listening, and the socket file is removed on return. The socket is
// restricted to the owning user: the protocol carries no
// authentication, so possession of the socket is the trust boundary.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		return fmt.Errorf("restricting socket %s: %w", s.socketPath, err)
	}

	// Unblock Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("ipc server listening", "path", s.socketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

// handleConnection processes one request-response cycle.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	// CBOR is self-delimiting so no framing protocol is needed.
	// LimitReader prevents a runaway client from exhausting memory.
	var request Request
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&request); err != nil {
		if errors.Is(err, io.EOF) {
			// Client connected but sent nothing.
			return
		}
		s.write(conn, Response{OK: false, Error: fmt.Sprintf("invalid request: %v", err)})
		return
	}
	if request.Action == "" {
		s.write(conn, Response{OK: false, Error: "missing required field: action"})
		return
	}

	response := s.dispatch(ctx, &request)
	if !response.OK {
		s.logger.Debug("request failed",
			"action", request.Action,
			"error", response.Error,
		)
	}
	s.write(conn, response)
}

func (s *Server) dispatch(ctx context.Context, request *Request) Response {
	switch request.Action {
	case ActionLoad:
		return s.handleLoad(ctx, request)
	case ActionFilter:
		return s.handleFilter(request)
	case ActionFault:
		return s.handleFault(request)
	case ActionReportState:
		return s.handleReportState(request)
	case ActionStart:
		return s.handleLifecycle(request, s.platform.StartProcess)
	case ActionStop:
		return s.handleLifecycle(request, s.platform.StopProcess)
	case ActionUnload:
		return s.handleUnload(request)
	case ActionPs:
		return s.handlePs()
	case ActionStatus:
		return s.handleStatus()
	case ActionEvents:
		return s.handleEvents(request)
	case ActionVersion:
		return Response{OK: true, Version: s.version}
	default:
		return Response{OK: false, Error: fmt.Sprintf("unknown action %q", request.Action)}
	}
}

func (s *Server) handleLoad(ctx context.Context, request *Request) Response {
	if request.Package == "" {
		return Response{OK: false, Error: "package is required for load"}
	}
	if len(request.Image) == 0 {
		return Response{OK: false, Error: "image is required for load"}
	}

	decision, err := s.platform.LoadImage(ctx, request.Package, request.Image)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}

	result := LoadResult{Admitted: decision.Admitted}
	if decision.Err != nil {
		result.Reason = decision.Err.Error()
	}
	if decision.Process != 0 {
		if rec, lookupErr := s.platform.Process(decision.Process); lookupErr == nil {
			info := recordInfo(rec)
			result.Process = &info
		}
	}
	return Response{OK: true, Load: &result}
}

func (s *Server) handleFilter(request *Request) Response {
	var caller shortid.ShortId
	if err := caller.UnmarshalText([]byte(request.Caller)); err != nil {
		return Response{OK: false, Error: fmt.Sprintf("invalid caller: %v", err)}
	}
	op, err := syscallfilter.ParseOperationKind(request.Operation)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}

	err = s.platform.FilterSyscall(syscallfilter.Request{
		Caller:   caller,
		Resource: request.Resource,
		Op:       op,
	})
	switch {
	case err == nil:
		return Response{OK: true, Allowed: true}
	case errors.Is(err, syscallfilter.ErrNoDevice):
		return Response{OK: true, Allowed: false}
	default:
		return Response{OK: false, Error: err.Error()}
	}
}

func (s *Server) handleFault(request *Request) Response {
	if request.Process == 0 {
		return Response{OK: false, Error: "process is required for fault"}
	}
	id := registry.ProcessID(request.Process)

	action, err := s.platform.HandleFault(id)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}

	response := Response{OK: true, FaultAction: action.String()}
	if rec, lookupErr := s.platform.Process(id); lookupErr == nil {
		response.FaultCount = rec.RestartCount
		info := recordInfo(rec)
		response.Process = &info
	}
	return response
}

func (s *Server) handleReportState(request *Request) Response {
	if request.Process == 0 {
		return Response{OK: false, Error: "process is required for report-state"}
	}
	state, err := registry.ParseState(request.State)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}

	id := registry.ProcessID(request.Process)
	if err := s.platform.ReportState(id, state); err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	return s.respondWithProcess(id)
}

// handleLifecycle covers start and stop, which share the shape:
// resolve the target, apply, respond with the updated record.
func (s *Server) handleLifecycle(request *Request, apply func(registry.ProcessID) error) Response {
	id, err := s.resolveProcess(request)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	if err := apply(id); err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	return s.respondWithProcess(id)
}

func (s *Server) handleUnload(request *Request) Response {
	id, err := s.resolveProcess(request)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	if err := s.platform.UnloadProcess(id); err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	// The record is gone; there is nothing to echo back.
	return Response{OK: true}
}

func (s *Server) handlePs() Response {
	records := s.platform.Processes()
	infos := make([]ProcessInfo, 0, len(records))
	for _, rec := range records {
		infos = append(infos, recordInfo(rec))
	}
	return Response{OK: true, Processes: infos}
}

func (s *Server) handleStatus() Response {
	status, err := s.platform.Status()
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	return Response{OK: true, Status: &StatusInfo{
		Processes:    status.Processes,
		States:       status.States,
		JournalSeq:   status.JournalSeq,
		StoredImages: status.StoredImages,
		Version:      s.version,
	}}
}

func (s *Server) handleEvents(request *Request) Response {
	count := request.Count
	if count <= 0 {
		count = defaultEventCount
	}
	return Response{OK: true, Events: s.platform.Events(count)}
}

// resolveProcess turns a request's target into a process handle. A
// nonzero Process wins; otherwise Package selects by name and must
// match exactly one live process.
func (s *Server) resolveProcess(request *Request) (registry.ProcessID, error) {
	if request.Process != 0 {
		return registry.ProcessID(request.Process), nil
	}
	if request.Package == "" {
		return 0, errors.New("process or package is required")
	}

	var matches []registry.Record
	for _, rec := range s.platform.Processes() {
		if rec.Package == request.Package {
			matches = append(matches, rec)
		}
	}
	switch len(matches) {
	case 0:
		return 0, fmt.Errorf("no process named %q", request.Package)
	case 1:
		return matches[0].ID, nil
	default:
		return 0, fmt.Errorf("%d processes named %q, identify one by id", len(matches), request.Package)
	}
}

func (s *Server) respondWithProcess(id registry.ProcessID) Response {
	response := Response{OK: true}
	if rec, err := s.platform.Process(id); err == nil {
		info := recordInfo(rec)
		response.Process = &info
	}
	return response
}

// write sends a response. Write failures are logged at debug level:
// the connection is closing regardless.
func (s *Server) write(conn net.Conn, response Response) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

// recordInfo converts a registry record to its wire form.
func recordInfo(rec registry.Record) ProcessInfo {
	return ProcessInfo{
		ID:           uint64(rec.ID),
		Package:      rec.Package,
		ShortId:      rec.ShortId.String(),
		Verified:     rec.Verified,
		RestartCount: rec.RestartCount,
		State:        rec.State.String(),
		RegisteredAt: rec.RegisteredAt.UnixMilli(),
	}
}
