package ipc

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/google/uuid"
)

// Client calls a running daemon's local management surface.
type Client struct {
	sockPath string
}

// NewClient returns a Client bound to sockPath.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath}
}

// Call sends req and waits for the matching response. A request ID is
// generated if req.ID is empty.
func (c *Client) Call(req Request) (Response, error) {
	if req.ID == "" {
		if id, err := uuid.NewV7(); err == nil {
			req.ID = id.String()
		}
	}

	conn, err := net.Dial("unix", c.sockPath)
	if err != nil {
		return Response{}, fmt.Errorf("ipc: connect to daemon: %w (is miracastd running?)", err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("ipc: send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("ipc: read response: %w", err)
	}
	return resp, nil
}
