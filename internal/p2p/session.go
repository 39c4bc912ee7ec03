package p2p

import (
	"sync"
	"time"

	"github.com/wfdcast/miracastd/internal/wpamsg"
	"github.com/wfdcast/miracastd/internal/wpaqueue"
)

const (
	// DhcpLeaseTimeout is how long the Engine waits for a DHCP client
	// lease after becoming a group client before declaring Failure.
	DhcpLeaseTimeout = 5 * time.Second
	// PeerFailureGrace is how long a peer stays in Failure before
	// silently reverting to Idle.
	PeerFailureGrace = 5 * time.Second
)

// Events consumed from the supplicant that carry no device-state action,
// kept distinct from "truly unhandled" so they never reach a warning log.
var ignoredEvents = map[string]bool{
	"CTRL-EVENT-SCAN-STARTED":     true,
	"CTRL-EVENT-SCAN-RESULTS":     true,
	"CTRL-EVENT-CONNECTED":        true,
	"CTRL-EVENT-DISCONNECTED":     true,
	"P2P-GROUP-FORMATION-SUCCESS": true,
}

// Engine is the P2P session orchestration engine: it interprets
// wpa_supplicant events into NetworkDevice transitions, owns the peer
// table and active-peer/group-role state, and drives DHCP start/stop.
//
// All mutation happens under mu. Device-found, device-changed and
// state-changed callbacks are invoked while holding it, relying on the
// contract (see Delegate) that the service layer never calls back into
// the Engine from inside one; device-lost and scanning-changed callbacks
// are invoked after it is released.
type Engine struct {
	mu sync.Mutex

	iface string
	queue *wpaqueue.Queue

	peers       map[string]*Device
	currentPeer *Device
	groupOwner  bool
	scanning    bool

	dhcpClient DHCPClient
	dhcpServer DHCPServer
	scheduler  Scheduler

	dhcpTimeout  Timer
	failureTimer Timer

	delegate Delegate

	onLog func(format string, args ...interface{})
}

// Option customizes a new Engine.
type Option func(*Engine)

// WithLogger installs a printf-style logging hook, invoked for malformed,
// WFD-unsupported and unhandled events and for DHCP start failures.
// Explicitly ignored events and device-state transitions are not logged.
func WithLogger(f func(format string, args ...interface{})) Option {
	return func(e *Engine) { e.onLog = f }
}

// NewEngine constructs an Engine bound to one supplicant interface.
func NewEngine(iface string, queue *wpaqueue.Queue, dhcpClient DHCPClient, dhcpServer DHCPServer, scheduler Scheduler, delegate Delegate, opts ...Option) *Engine {
	e := &Engine{
		iface:      iface,
		queue:      queue,
		peers:      make(map[string]*Device),
		dhcpClient: dhcpClient,
		dhcpServer: dhcpServer,
		scheduler:  scheduler,
		delegate:   delegate,
		onLog:      func(string, ...interface{}) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleEvent is wired as the command queue's event delegate: every
// unsolicited supplicant event arrives here.
func (e *Engine) HandleEvent(msg wpamsg.Message) {
	if ignoredEvents[msg.Name] {
		return
	}

	switch msg.Name {
	case "P2P-DEVICE-FOUND":
		e.onDeviceFound(msg)
	case "P2P-DEVICE-LOST":
		e.onDeviceLost(msg)
	case "P2P-GROUP-STARTED":
		e.onGroupStarted(msg)
	case "P2P-GROUP-REMOVED":
		e.onGroupRemoved(msg)
	case "P2P-GO-NEG-FAILURE":
		e.onGoNegFailure(msg)
	case "P2P-FIND-STOPPED":
		e.onFindStopped(msg)
	case "AP-STA-CONNECTED", "AP-STA-DISCONNECTED":
		// Informational only, per spec.
	default:
		e.onLog("p2p: unhandled supplicant event: %s", msg.Name)
	}
}

func (e *Engine) onDeviceFound(msg wpamsg.Message) {
	var address, name, wfdHex string
	err := msg.Read().Named("p2p_dev_addr", &address).NamedOptional("name", &name).NamedOptional("wfd_dev_info", &wfdHex).Err()
	if err != nil {
		e.onLog("p2p: malformed P2P-DEVICE-FOUND: %v", err)
		return
	}

	info := parseWfdDeviceInfo(wfdHex)
	if !info.IsSupported() {
		e.onLog("p2p: ignoring WFD-unsupported device %s", address)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.peers[address]; ok {
		existing.Name = name
		existing.SupportedRoles = info.roles()
		if e.delegate != nil {
			e.delegate.OnDeviceChanged(existing.clone())
		}
		return
	}

	d := &Device{Address: address, Name: name, SupportedRoles: info.roles(), State: StateIdle}
	e.peers[address] = d
	if e.delegate != nil {
		e.delegate.OnDeviceFound(d.clone())
	}
}

func (e *Engine) onDeviceLost(msg wpamsg.Message) {
	// Resolved Open Question: read p2p_dev_addr, not the p2p_dev_address
	// typo some versions of the original source carry.
	var address string
	if err := msg.Read().Named("p2p_dev_addr", &address).Err(); err != nil {
		e.onLog("p2p: malformed P2P-DEVICE-LOST: %v", err)
		return
	}

	e.mu.Lock()
	d, ok := e.peers[address]
	if ok {
		delete(e.peers, address)
	}
	e.mu.Unlock()

	if ok && e.delegate != nil {
		e.delegate.OnDeviceLost(d.clone())
	}
}

func (e *Engine) onGroupStarted(msg wpamsg.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.currentPeer == nil {
		return
	}

	var role string
	if err := msg.Read().Skip().Positional(&role).Err(); err != nil {
		e.onLog("p2p: malformed P2P-GROUP-STARTED: %v", err)
		return
	}

	e.advanceLocked(e.currentPeer, StateConfiguration)

	if role == "GO" {
		e.groupOwner = true
		if err := e.dhcpServer.Start(e.iface); err != nil {
			e.onLog("p2p: failed to start DHCP server: %v", err)
		}
		e.advanceLocked(e.currentPeer, StateConnected)
		return
	}

	e.groupOwner = false
	peer := e.currentPeer
	if err := e.dhcpClient.Start(e.iface, func(addr string) {
		e.onAddressAssigned(peer)
	}); err != nil {
		e.onLog("p2p: failed to start DHCP client: %v", err)
	}

	e.dhcpTimeout = e.scheduler.After(DhcpLeaseTimeout, func() { e.onDhcpTimeout(peer) })
}

func (e *Engine) onGroupRemoved(msg wpamsg.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.currentPeer == nil {
		return
	}

	e.stopDhcpLocked()

	var reason string
	_ = msg.Read().Skip().Skip().NamedOptional("reason", &reason).Err()

	failureReasons := map[string]bool{
		"FORMATION_FAILED": true,
		"PSK_FAILURE":      true,
		"FREQ_CONFLICT":    true,
	}

	next := StateDisconnected
	if failureReasons[reason] {
		next = StateFailure
	}

	e.advanceLocked(e.currentPeer, next)
	if next == StateFailure {
		e.armFailureGraceLocked(e.currentPeer)
	}
	e.currentPeer = nil
}

func (e *Engine) onGoNegFailure(msg wpamsg.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.currentPeer == nil {
		return
	}
	e.advanceLocked(e.currentPeer, StateFailure)
	e.armFailureGraceLocked(e.currentPeer)
	e.currentPeer = nil
}

func (e *Engine) onFindStopped(msg wpamsg.Message) {
	e.mu.Lock()
	if !e.scanning {
		e.mu.Unlock()
		return
	}
	e.scanning = false
	e.mu.Unlock()

	if e.delegate != nil {
		e.delegate.OnScanningChanged(false)
	}
}

// onAddressAssigned is the DHCP client's success callback.
func (e *Engine) onAddressAssigned(peer *Device) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// A late assignment after the engine already moved on (timeout fired,
	// peer changed, or session reset) is ignored.
	if e.currentPeer != peer {
		return
	}
	if e.dhcpTimeout != nil {
		e.dhcpTimeout.Stop()
		e.dhcpTimeout = nil
	}
	e.advanceLocked(peer, StateConnected)
}

func (e *Engine) onDhcpTimeout(peer *Device) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.currentPeer != peer {
		return
	}
	e.stopDhcpLocked()
	e.advanceLocked(peer, StateFailure)
	e.armFailureGraceLocked(peer)
	e.currentPeer = nil
}

// armFailureGraceLocked must be called with mu held.
func (e *Engine) armFailureGraceLocked(peer *Device) {
	if e.failureTimer != nil {
		e.failureTimer.Stop()
	}
	e.failureTimer = e.scheduler.After(PeerFailureGrace, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.failureTimer = nil
		if peer.State == StateFailure {
			peer.State = StateIdle
		}
	})
}

// stopDhcpLocked stops whichever DHCP side is active and disarms the
// lease timeout. Must be called with mu held.
func (e *Engine) stopDhcpLocked() {
	if e.groupOwner {
		e.dhcpServer.Stop()
	} else {
		e.dhcpClient.Stop()
	}
	if e.dhcpTimeout != nil {
		e.dhcpTimeout.Stop()
		e.dhcpTimeout = nil
	}
}

// advanceLocked mutates d's state and notifies the delegate. Must be
// called with mu held.
func (e *Engine) advanceLocked(d *Device, s State) {
	d.State = s
	if e.delegate != nil {
		e.delegate.OnDeviceStateChanged(d.clone())
		e.delegate.OnDeviceChanged(d.clone())
	}
}

// Connect validates addr against the peer table and, if accepted,
// enqueues P2P_CONNECT (after P2P_STOP_FIND if a scan is in progress).
func (e *Engine) Connect(addr string) error {
	e.mu.Lock()
	if e.currentPeer != nil {
		e.mu.Unlock()
		return ErrAlreadyConnected
	}
	d, ok := e.peers[addr]
	if !ok {
		e.mu.Unlock()
		return ErrUnknownDevice
	}
	e.currentPeer = d
	wasScanning := e.scanning
	e.advanceLocked(d, StateAssociation)
	e.mu.Unlock()

	if wasScanning {
		e.queue.Enqueue(wpamsg.NewRequest("P2P_STOP_FIND"), nil)
	}

	e.queue.Enqueue(wpamsg.NewRequest("P2P_CONNECT", addr, "pbc"), func(reply wpamsg.Message) {
		if !reply.IsFail() {
			return
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.currentPeer == d {
			e.advanceLocked(d, StateFailure)
			e.currentPeer = nil
		}
	})
	return nil
}

// Disconnect tears down the current peer: P2P_CANCEL while still
// associating, P2P_GROUP_REMOVE once a group exists.
func (e *Engine) Disconnect(addr string) error {
	e.mu.Lock()
	if e.currentPeer == nil || e.currentPeer.Address != addr {
		e.mu.Unlock()
		return ErrNotCurrentPeer
	}
	associating := e.currentPeer.State == StateAssociation
	e.mu.Unlock()

	if associating {
		e.queue.Enqueue(wpamsg.NewRequest("P2P_CANCEL"), nil)
	} else {
		e.queue.Enqueue(wpamsg.NewRequest("P2P_GROUP_REMOVE", e.iface), nil)
	}
	return nil
}

// Scan starts discovery for timeoutSeconds (0 means "no timeout";
// the supplicant scans until P2P_STOP_FIND). A no-op if already scanning.
func (e *Engine) Scan(timeoutSeconds int) {
	e.mu.Lock()
	if e.scanning {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	req := wpamsg.NewRequest("P2P_FIND")
	if timeoutSeconds > 0 {
		req = wpamsg.NewRequest("P2P_FIND", timeoutSeconds)
	}

	e.queue.Enqueue(req, func(reply wpamsg.Message) {
		nowScanning := !reply.IsFail()

		e.mu.Lock()
		changed := e.scanning != nowScanning
		e.scanning = nowScanning
		e.mu.Unlock()

		if changed && e.delegate != nil {
			e.delegate.OnScanningChanged(nowScanning)
		}
	})
}

// Reset handles loss of the supplicant (crash or exhausted respawn
// budget): any current peer is moved to Disconnected, DHCP is stopped,
// and every known peer is dropped with a device-lost notification.
func (e *Engine) Reset() {
	e.mu.Lock()

	if e.currentPeer != nil {
		e.stopDhcpLocked()
		e.advanceLocked(e.currentPeer, StateDisconnected)
		e.currentPeer = nil
	}
	if e.failureTimer != nil {
		e.failureTimer.Stop()
		e.failureTimer = nil
	}

	lost := make([]*Device, 0, len(e.peers))
	for _, d := range e.peers {
		lost = append(lost, d.clone())
	}
	e.peers = make(map[string]*Device)
	e.groupOwner = false
	e.scanning = false

	delegate := e.delegate
	e.mu.Unlock()

	if delegate != nil {
		for _, d := range lost {
			delegate.OnDeviceLost(d)
		}
	}
}

// Devices returns a snapshot of all known peers.
func (e *Engine) Devices() []*Device {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Device, 0, len(e.peers))
	for _, d := range e.peers {
		out = append(out, d.clone())
	}
	return out
}

// CurrentPeer returns a snapshot of the active peer, or nil.
func (e *Engine) CurrentPeer() *Device {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.currentPeer == nil {
		return nil
	}
	return e.currentPeer.clone()
}

// IsGroupOwner reports whether this side became the P2P group owner.
func (e *Engine) IsGroupOwner() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.groupOwner
}

// Scanning reports whether a P2P_FIND is currently in progress.
func (e *Engine) Scanning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scanning
}

// LocalAddress returns the DHCP server's local IP when this side is the
// group owner, else the DHCP client's leased IP. Empty until Connected.
func (e *Engine) LocalAddress() string {
	e.mu.Lock()
	owner := e.groupOwner
	connected := e.currentPeer != nil && e.currentPeer.State == StateConnected
	e.mu.Unlock()

	if !connected {
		return ""
	}
	if owner {
		return e.dhcpServer.LocalAddress()
	}
	return e.dhcpClient.LocalAddress()
}
