package ipc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wfdcast/miracastd/internal/networkmanager"
)

func newTestServer(t *testing.T) (*Server, *Client, func()) {
	t.Helper()

	sockPath := filepath.Join(t.TempDir(), "miracastd-test.sock")
	facade := networkmanager.New(networkmanager.Config{Interface: "p2p0", CtrlDir: "/tmp"})

	srv, err := NewServer(facade, sockPath)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go srv.Serve()

	client := NewClient(sockPath)
	return srv, client, func() { srv.Close() }
}

func TestServer_StatusWhenNotRunning(t *testing.T) {
	_, client, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := client.Call(Request{Command: "status"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.Running {
		t.Errorf("expected Running to be false")
	}
	if resp.Error != nil {
		t.Errorf("unexpected error: %v", resp.Error)
	}
}

func TestServer_DevicesWhenEmpty(t *testing.T) {
	_, client, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := client.Call(Request{Command: "devices"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(resp.Devices) != 0 {
		t.Errorf("expected no devices, got %v", resp.Devices)
	}
}

func TestServer_CapabilitiesRoundTrip(t *testing.T) {
	_, client, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := client.Call(Request{Command: "capabilities"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.Capabilities == nil || resp.Capabilities.SubElement == "" {
		t.Fatalf("expected default capabilities, got %v", resp.Capabilities)
	}

	set, err := client.Call(Request{
		Command: "set-capabilities",
		Capabilities: &CapabilitiesDTO{
			Roles:      []string{"source"},
			SubElement: "00AA",
			Summary:    "test",
		},
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if set.Error != nil {
		t.Fatalf("unexpected error: %v", set.Error)
	}
	if set.Capabilities.SubElement != "00AA" {
		t.Errorf("expected sub-element 00AA, got %s", set.Capabilities.SubElement)
	}
}

func TestServer_ScanAndConnectFailWhenNotReady(t *testing.T) {
	_, client, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := client.Call(Request{Command: "scan"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.Error == nil || resp.Error.Kind != "not_ready" {
		t.Errorf("expected not_ready error, got %v", resp.Error)
	}

	resp, err = client.Call(Request{Command: "connect", Address: "02:00:00:00:00:01"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.Error == nil || resp.Error.Kind != "not_ready" {
		t.Errorf("expected not_ready error, got %v", resp.Error)
	}
}

func TestServer_UnknownCommand(t *testing.T) {
	_, client, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := client.Call(Request{Command: "bogus"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.Error == nil || resp.Error.Kind != "param_invalid" {
		t.Errorf("expected param_invalid error, got %v", resp.Error)
	}
}

func TestServer_RequestIDEchoed(t *testing.T) {
	_, client, cleanup := newTestServer(t)
	defer cleanup()

	resp, err := client.Call(Request{ID: "my-id", Command: "status"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.ID != "my-id" {
		t.Errorf("expected echoed ID my-id, got %s", resp.ID)
	}
}

func TestNewServer_CreatesSocketDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "run")
	sockPath := filepath.Join(dir, "miracastd.sock")
	facade := networkmanager.New(networkmanager.Config{Interface: "p2p0", CtrlDir: "/tmp"})

	srv, err := NewServer(facade, sockPath)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer srv.Close()

	if _, err := os.Stat(sockPath); err != nil {
		t.Errorf("expected socket file to exist: %v", err)
	}
}
