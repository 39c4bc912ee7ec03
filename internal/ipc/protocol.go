// Package ipc is the local management surface: a minimal JSON-over-
// unix-socket request/response protocol exposing the Network Manager
// Facade to cmd/miracastctl and any other local client. Grounded
// directly on the teacher's daemon.go/client.go/protocol.go
// (IPCRequest/IPCResponse, XDG_RUNTIME_DIR socket path, stale-socket
// removal, 0700 permission) — this is the "management-surface IPC
// skeleton" spec.md waves off as out of scope for the session engine
// itself, kept intentionally hand-rolled rather than a generic RPC
// framework.
package ipc

// Request is sent from a client to the daemon.
type Request struct {
	ID      string `json:"id"`
	Command string `json:"command"` // enable|disable|scan|devices|connect|disconnect|status|capabilities|set-capabilities
	Address string `json:"address,omitempty"`
	Timeout int    `json:"timeout,omitempty"`

	// Capabilities is only read for the "set-capabilities" command.
	Capabilities *CapabilitiesDTO `json:"capabilities,omitempty"`
}

// Response is sent from the daemon back to the client. ID echoes the
// request's ID for client-side correlation and logging.
type Response struct {
	ID           string           `json:"id"`
	Running      bool             `json:"running,omitempty"`
	Scanning     bool             `json:"scanning,omitempty"`
	State        string           `json:"state,omitempty"`
	Address      string           `json:"address,omitempty"`
	LocalAddress string           `json:"local_address,omitempty"`
	Devices      []DeviceDTO      `json:"devices,omitempty"`
	Capabilities *CapabilitiesDTO `json:"capabilities,omitempty"`
	Error        *ErrorDTO        `json:"error,omitempty"`
}

// DeviceDTO is the wire representation of a p2p.Device.
type DeviceDTO struct {
	Address string   `json:"address"`
	Name    string   `json:"name"`
	Roles   []string `json:"roles"`
	State   string   `json:"state"`
}

// CapabilitiesDTO is the wire representation of networkmanager.Capabilities.
type CapabilitiesDTO struct {
	Roles      []string `json:"roles"`
	SubElement string   `json:"sub_element"`
	Summary    string   `json:"summary,omitempty"`
}

// ErrorDTO is the wire representation of a *networkmanager.Error.
type ErrorDTO struct {
	Kind string `json:"kind"`
	Msg  string `json:"msg"`
}
