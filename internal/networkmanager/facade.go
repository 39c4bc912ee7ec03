// Package networkmanager is the Network Manager Facade: the single
// entry point the rest of the daemon (and, through it, the local
// management IPC surface) uses to drive P2P discovery and connection. It
// wires the Supplicant Link, the P2P Session Engine, the DHCP role
// wrapper, and the firmware loader contract together behind the
// setup/scan/connect/disconnect/devices/local-address/capabilities
// operations.
package networkmanager

import (
	"sync"

	"github.com/wfdcast/miracastd/internal/dhcprole"
	"github.com/wfdcast/miracastd/internal/firmware"
	"github.com/wfdcast/miracastd/internal/logging"
	"github.com/wfdcast/miracastd/internal/p2p"
	"github.com/wfdcast/miracastd/internal/supplicant"
	"github.com/wfdcast/miracastd/internal/wpamsg"
	"github.com/wfdcast/miracastd/internal/wpaqueue"
)

// Delegate receives notifications forwarded from the underlying P2P
// Session Engine.
type Delegate = p2p.Delegate

// Facade is the daemon-wide coordination point for P2P/WFD networking.
type Facade struct {
	mu sync.Mutex

	iface    string
	link     *supplicant.Link
	engine   *p2p.Engine
	firmware firmware.Loader

	capabilities Capabilities
	running      bool
}

// Config collects the Facade's construction-time dependencies.
type Config struct {
	Interface   string
	CtrlDir     string
	Coordinator supplicant.UnmanageCoordinator // optional
	Firmware    firmware.Loader                // optional, defaults to firmware.NoOp
	Debug       bool
	Delegate    Delegate
}

// New wires a Facade. The Queue, the Engine, and the Link each need one
// of the other two before it can be fully constructed (the Queue writes
// through the Link, the Link delivers into the Queue, the Queue
// delivers events into the Engine) — broken the same way a single-owner
// event loop breaks any such cycle: by forward-declaring the pointers
// and closing over them, since none of the three is actually invoked
// until Setup() runs.
func New(cfg Config) *Facade {
	fw := cfg.Firmware
	if fw == nil {
		fw = firmware.NoOp{}
	}

	var link *supplicant.Link
	var engine *p2p.Engine

	queue := wpaqueue.New(
		func(msg wpamsg.Message) error { return link.Write(msg) },
		func(msg wpamsg.Message) { engine.HandleEvent(msg) },
		nil,
	)

	f := &Facade{
		iface:        cfg.Interface,
		firmware:     fw,
		capabilities: defaultCapabilities(),
	}

	engine = p2p.NewEngine(cfg.Interface, queue, &dhcprole.Client{}, &dhcprole.Server{}, p2p.NewScheduler(), cfg.Delegate,
		p2p.WithLogger(logWarnf))
	f.engine = engine

	var opts []supplicant.Option
	if cfg.Coordinator != nil {
		opts = append(opts, supplicant.WithCoordinator(cfg.Coordinator))
	}
	opts = append(opts, supplicant.WithDebug(cfg.Debug))
	opts = append(opts, supplicant.OnFailure(func() { engine.Reset() }))

	link = supplicant.New(cfg.Interface, cfg.CtrlDir, queue, opts...)
	f.link = link

	return f
}

// Setup brings the interface up: loads firmware if needed, then starts
// the Supplicant Link. Mirrors the original's Setup()/firmware_loader_
// contract.
func (f *Facade) Setup() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		return ErrAlready
	}

	if !f.firmware.IsNeeded() {
		if err := f.link.Start(); err != nil {
			return NewError(KindFailed, err.Error())
		}
		f.running = true
		return nil
	}

	done := make(chan error, 1)
	f.firmware.Load(func(err error) { done <- err })
	if err := <-done; err != nil {
		return NewError(KindFailed, "firmware load: "+err.Error())
	}
	if err := f.link.Start(); err != nil {
		return NewError(KindFailed, err.Error())
	}
	f.running = true
	return nil
}

// Teardown stops the Supplicant Link and restores interface management
// to NetworkManager. Safe to call on a Facade that was never set up.
func (f *Facade) Teardown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return
	}
	f.link.Close()
	f.running = false
}

// Running reports whether the supplicant link has been started.
func (f *Facade) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Scan starts P2P discovery for timeoutSeconds (0 = no timeout).
func (f *Facade) Scan(timeoutSeconds int) error {
	if !f.Running() {
		return ErrNotReady
	}
	f.engine.Scan(timeoutSeconds)
	return nil
}

// Scanning reports whether discovery is currently in progress.
func (f *Facade) Scanning() bool { return f.engine.Scanning() }

// Devices returns a snapshot of all known peers.
func (f *Facade) Devices() []*p2p.Device { return f.engine.Devices() }

// Connect begins association with the peer at addr.
func (f *Facade) Connect(addr string) error {
	if !f.Running() {
		return ErrNotReady
	}
	if addr == "" {
		return NewError(KindParamInvalid, "address is required")
	}
	if err := f.engine.Connect(addr); err != nil {
		return translateEngineErr(err)
	}
	return nil
}

// Disconnect tears down the session with the peer at addr.
func (f *Facade) Disconnect(addr string) error {
	if !f.Running() {
		return ErrNotReady
	}
	if err := f.engine.Disconnect(addr); err != nil {
		return translateEngineErr(err)
	}
	return nil
}

// LocalAddress returns the local IP address on the group interface, or
// "" if no session is connected.
func (f *Facade) LocalAddress() string { return f.engine.LocalAddress() }

// CurrentPeer returns the active peer, or nil.
func (f *Facade) CurrentPeer() *p2p.Device { return f.engine.CurrentPeer() }

func translateEngineErr(err error) error {
	switch err {
	case p2p.ErrUnknownDevice:
		return NewError(KindParamInvalid, err.Error())
	case p2p.ErrAlreadyConnected, p2p.ErrNotCurrentPeer:
		return NewError(KindAlready, err.Error())
	default:
		return NewError(KindFailed, err.Error())
	}
}

func logWarnf(format string, args ...interface{}) {
	logging.Warn(format, args...)
}
