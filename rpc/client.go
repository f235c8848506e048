package rpc

import (
	"fmt"
	"net/rpc"

	"github.com/shenjiangwei/memsim/core"
)

// Client drives a remote System through a Server, giving the simulator a
// second front end alongside the in-process REPL with no core-logic
// duplication.
type Client struct {
	client *rpc.Client
}

// NewClient dials a Server at address.
func NewClient(address string) (*Client, error) {
	client, err := rpc.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	return &Client{client: client}, nil
}

// Init resets the remote session.
func (c *Client) Init(cfg core.SystemConfig) error {
	resp := &InitResponse{}
	if err := c.client.Call("Server.Init", &InitRequest{Config: cfg}, resp); err != nil {
		return fmt.Errorf("RPC call failed: %w", err)
	}
	if resp.Error != "" {
		return fmt.Errorf("server error: %s", resp.Error)
	}
	return nil
}

// Alloc requests an allocation from the remote session.
func (c *Client) Alloc(mode core.AllocatorMode, strategy core.Strategy, size uint64) (core.AllocResult, error) {
	req := &AllocRequest{Mode: mode, Strategy: strategy, Size: size}
	resp := &AllocResponse{}
	if err := c.client.Call("Server.Alloc", req, resp); err != nil {
		return core.AllocResult{}, fmt.Errorf("RPC call failed: %w", err)
	}
	if resp.Error != "" {
		return core.AllocResult{}, fmt.Errorf("server error: %s", resp.Error)
	}
	return core.AllocResult{ID: resp.ID, Address: resp.Address}, nil
}

// Free requests a free from the remote session.
func (c *Client) Free(id int) error {
	resp := &FreeResponse{}
	if err := c.client.Call("Server.Free", &FreeRequest{ID: id}, resp); err != nil {
		return fmt.Errorf("RPC call failed: %w", err)
	}
	if resp.Error != "" {
		return fmt.Errorf("server error: %s", resp.Error)
	}
	return nil
}

// VMInit requests a page table from the remote session.
func (c *Client) VMInit(pid int, virtualSize uint64) error {
	req := &VMInitRequest{PID: pid, VirtualSize: virtualSize}
	if err := c.client.Call("Server.VMInit", req, &struct{}{}); err != nil {
		return fmt.Errorf("RPC call failed: %w", err)
	}
	return nil
}

// VMAccess requests a translated access from the remote session.
func (c *Client) VMAccess(pid int, vaddr uint64) (core.AccessReport, error) {
	req := &VMAccessRequest{PID: pid, VAddr: vaddr}
	resp := &VMAccessResponse{}
	if err := c.client.Call("Server.VMAccess", req, resp); err != nil {
		return core.AccessReport{}, fmt.Errorf("RPC call failed: %w", err)
	}
	if resp.Error != "" {
		return core.AccessReport{}, fmt.Errorf("server error: %s", resp.Error)
	}
	return resp.Report, nil
}

// Stats requests a stats snapshot from the remote session.
func (c *Client) Stats() (core.Stats, error) {
	resp := &StatsResponse{}
	if err := c.client.Call("Server.Stats", &struct{}{}, resp); err != nil {
		return core.Stats{}, fmt.Errorf("RPC call failed: %w", err)
	}
	return resp.Stats, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.client.Close()
}
