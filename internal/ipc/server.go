package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/wfdcast/miracastd/internal/logging"
	"github.com/wfdcast/miracastd/internal/networkmanager"
	"github.com/wfdcast/miracastd/internal/p2p"
)

// Server listens on a unix socket and dispatches requests to a Facade.
type Server struct {
	facade *networkmanager.Facade
	path   string
	ln     net.Listener
}

// NewServer binds a Server to sockPath. The directory is created if
// needed and any stale socket file is removed before listening.
func NewServer(facade *networkmanager.Facade, sockPath string) (*Server, error) {
	if err := os.MkdirAll(filepath.Dir(sockPath), 0700); err != nil {
		return nil, fmt.Errorf("ipc: mkdir %s: %w", filepath.Dir(sockPath), err)
	}
	os.Remove(sockPath)

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen %s: %w", sockPath, err)
	}
	os.Chmod(sockPath, 0700)

	return &Server{facade: facade, path: sockPath, ln: ln}, nil
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() error {
	defer os.Remove(s.path)
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return nil
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.ln.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		json.NewEncoder(conn).Encode(Response{Error: &ErrorDTO{Kind: "param_invalid", Msg: "invalid request: " + err.Error()}})
		return
	}
	if req.ID == "" {
		if id, err := uuid.NewV7(); err == nil {
			req.ID = id.String()
		}
	}

	resp := s.handleRequest(req)
	resp.ID = req.ID
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		logging.Warn("ipc: encode response: %v", err)
	}
}

func (s *Server) handleRequest(req Request) Response {
	switch req.Command {
	case "enable":
		if err := s.facade.Setup(); err != nil {
			return errorResponse(err)
		}
		return Response{Running: true}

	case "disable":
		s.facade.Teardown()
		return Response{Running: false}

	case "scan":
		if err := s.facade.Scan(req.Timeout); err != nil {
			return errorResponse(err)
		}
		return Response{Scanning: true}

	case "devices":
		return Response{Devices: toDeviceDTOs(s.facade.Devices())}

	case "connect":
		if err := s.facade.Connect(req.Address); err != nil {
			return errorResponse(err)
		}
		return Response{Address: req.Address}

	case "disconnect":
		if err := s.facade.Disconnect(req.Address); err != nil {
			return errorResponse(err)
		}
		return Response{Address: req.Address}

	case "status":
		return s.statusResponse()

	case "capabilities":
		return Response{Capabilities: toCapabilitiesDTO(s.facade.Capabilities())}

	case "set-capabilities":
		if req.Capabilities == nil {
			return errorResponse(networkmanager.NewError(networkmanager.KindParamInvalid, "capabilities is required"))
		}
		c := fromCapabilitiesDTO(*req.Capabilities)
		if err := s.facade.SetCapabilities(c); err != nil {
			return errorResponse(err)
		}
		return Response{Capabilities: toCapabilitiesDTO(s.facade.Capabilities())}

	default:
		return errorResponse(networkmanager.NewError(networkmanager.KindParamInvalid, fmt.Sprintf("unknown command: %q", req.Command)))
	}
}

func (s *Server) statusResponse() Response {
	resp := Response{
		Running:      s.facade.Running(),
		Scanning:     s.facade.Scanning(),
		LocalAddress: s.facade.LocalAddress(),
		Devices:      toDeviceDTOs(s.facade.Devices()),
	}
	if peer := s.facade.CurrentPeer(); peer != nil {
		resp.Address = peer.Address
		resp.State = string(peer.State)
	}
	return resp
}

func errorResponse(err error) Response {
	if fe, ok := err.(*networkmanager.Error); ok {
		return Response{Error: &ErrorDTO{Kind: string(fe.Kind), Msg: fe.Msg}}
	}
	return Response{Error: &ErrorDTO{Kind: string(networkmanager.KindFailed), Msg: err.Error()}}
}

func toDeviceDTOs(devices []*p2p.Device) []DeviceDTO {
	out := make([]DeviceDTO, 0, len(devices))
	for _, d := range devices {
		roles := make([]string, 0, len(d.SupportedRoles))
		for _, r := range d.SupportedRoles {
			roles = append(roles, string(r))
		}
		out = append(out, DeviceDTO{Address: d.Address, Name: d.Name, Roles: roles, State: string(d.State)})
	}
	return out
}

func toCapabilitiesDTO(c networkmanager.Capabilities) *CapabilitiesDTO {
	roles := make([]string, 0, len(c.Roles))
	for _, r := range c.Roles {
		roles = append(roles, string(r))
	}
	return &CapabilitiesDTO{Roles: roles, SubElement: c.SubElement, Summary: c.Summary}
}

func fromCapabilitiesDTO(dto CapabilitiesDTO) networkmanager.Capabilities {
	roles := make([]p2p.Role, 0, len(dto.Roles))
	for _, r := range dto.Roles {
		roles = append(roles, p2p.Role(r))
	}
	return networkmanager.Capabilities{Roles: roles, SubElement: dto.SubElement, Summary: dto.Summary}
}
