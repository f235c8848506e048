// Package rpc exposes a core.System over net/rpc so the simulator can be
// driven remotely.
package rpc

import (
	"fmt"
	"net"
	"net/rpc"
	"sync"

	"github.com/shenjiangwei/memsim/core"
)

// Server wraps one core.System behind net/rpc, serializing every command
// through a single mutex: concurrent RPC clients are an I/O-layer
// concern, not a core-semantics one.
type Server struct {
	mu     sync.Mutex
	system *core.System
}

// InitRequest mirrors the init command's arguments.
type InitRequest struct {
	Config core.SystemConfig
}

// InitResponse reports whether init succeeded.
type InitResponse struct {
	Error string
}

// AllocRequest mirrors the alloc command's arguments.
type AllocRequest struct {
	Mode     core.AllocatorMode
	Strategy core.Strategy
	Size     uint64
}

// AllocResponse mirrors an alloc success/failure line.
type AllocResponse struct {
	ID      int
	Address uint64
	Error   string
}

// FreeRequest mirrors the free command's arguments.
type FreeRequest struct {
	ID int
}

// FreeResponse reports whether the free succeeded.
type FreeResponse struct {
	Error string
}

// VMInitRequest mirrors the vm_init command's arguments.
type VMInitRequest struct {
	PID         int
	VirtualSize uint64
}

// VMAccessRequest mirrors the access command's arguments.
type VMAccessRequest struct {
	PID   int
	VAddr uint64
}

// VMAccessResponse carries back the full access report.
type VMAccessResponse struct {
	Report core.AccessReport
	Error  string
}

// StatsResponse carries back a full Stats snapshot.
type StatsResponse struct {
	Stats core.Stats
}

// NewServer creates an unregistered, uninitialized Server. Call Init
// before Alloc/Free/VMAccess; call Start to register and serve.
func NewServer() *Server {
	return &Server{}
}

// Start registers the server's RPC methods and serves connections on
// address until Accept fails.
func (s *Server) Start(address string) error {
	if err := rpc.Register(s); err != nil {
		return fmt.Errorf("failed to register server: %w", err)
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	defer listener.Close()

	for {
		conn, err := listener.Accept()
		if err != nil {
			return fmt.Errorf("accept failed: %w", err)
		}
		go rpc.ServeConn(conn)
	}
}

// Init replaces the server's System with a freshly configured one.
func (s *Server) Init(req *InitRequest, resp *InitResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	system, err := core.NewSystem(req.Config)
	if err != nil {
		resp.Error = err.Error()
		return nil
	}
	s.system = system
	return nil
}

// Alloc forwards to System.Alloc.
func (s *Server) Alloc(req *AllocRequest, resp *AllocResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.system == nil {
		resp.Error = "session not initialized"
		return nil
	}
	result, err := s.system.Alloc(req.Mode, req.Strategy, req.Size)
	if err != nil {
		resp.Error = err.Error()
		return nil
	}
	resp.ID, resp.Address = result.ID, result.Address
	return nil
}

// Free forwards to System.Free.
func (s *Server) Free(req *FreeRequest, resp *FreeResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.system == nil {
		resp.Error = "session not initialized"
		return nil
	}
	if err := s.system.Free(req.ID); err != nil {
		resp.Error = err.Error()
	}
	return nil
}

// VMInit forwards to System.VMInit.
func (s *Server) VMInit(req *VMInitRequest, resp *struct{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.system == nil {
		return fmt.Errorf("session not initialized")
	}
	s.system.VMInit(req.PID, req.VirtualSize)
	return nil
}

// VMAccess forwards to System.VMAccess.
func (s *Server) VMAccess(req *VMAccessRequest, resp *VMAccessResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.system == nil {
		resp.Error = "session not initialized"
		return nil
	}
	report, err := s.system.VMAccess(req.PID, req.VAddr)
	if err != nil {
		resp.Error = err.Error()
	}
	resp.Report = report
	return nil
}

// Stats forwards to System.Stats.
func (s *Server) Stats(req *struct{}, resp *StatsResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.system == nil {
		return fmt.Errorf("session not initialized")
	}
	resp.Stats = s.system.Stats()
	return nil
}

// Close is a no-op placeholder kept for symmetry with Client.Close; the
// listener closes itself when Start returns.
func (s *Server) Close() error {
	return nil
}
