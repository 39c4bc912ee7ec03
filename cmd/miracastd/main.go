// Command miracastd is the Miracast Source daemon: it discovers Wi-Fi
// Display sinks over Wi-Fi Direct, negotiates a P2P group, and exposes a
// local management surface over a unix socket for cmd/miracastctl.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wfdcast/miracastd/internal/daemonconfig"
	"github.com/wfdcast/miracastd/internal/ipc"
	"github.com/wfdcast/miracastd/internal/logging"
	"github.com/wfdcast/miracastd/internal/netcoord"
	"github.com/wfdcast/miracastd/internal/networkmanager"
	"github.com/wfdcast/miracastd/internal/p2p"
	"github.com/wfdcast/miracastd/internal/supplicant"
)

// loggingDelegate forwards every P2P Session Engine notification to the
// structured logger; it's the minimal Delegate a headless daemon needs,
// with the IPC layer polling current state on demand rather than
// subscribing.
type loggingDelegate struct{}

func (loggingDelegate) OnDeviceFound(d *p2p.Device) {
	logging.Info("device found: %s (%s) roles=%v", d.Address, d.Name, d.SupportedRoles)
}

func (loggingDelegate) OnDeviceChanged(d *p2p.Device) {
	logging.Debug("device changed: %s state=%s", d.Address, d.State)
}

func (loggingDelegate) OnDeviceLost(d *p2p.Device) {
	logging.Info("device lost: %s", d.Address)
}

func (loggingDelegate) OnDeviceStateChanged(d *p2p.Device) {
	logging.Info("device %s -> %s", d.Address, d.State)
}

func (loggingDelegate) OnScanningChanged(scanning bool) {
	logging.Info("scanning: %t", scanning)
}

func main() {
	cfg := daemonconfig.Parse()
	if cfg.LogLevel == "debug" {
		logging.EnableDebug()
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg daemonconfig.Config) error {
	coord, err := netcoord.New()
	var coordinator supplicant.UnmanageCoordinator
	if err != nil {
		logging.Warn("netcoord: %v (continuing without NetworkManager coordination)", err)
	} else {
		defer coord.Close()
		coordinator = coord
	}

	facade := networkmanager.New(networkmanager.Config{
		Interface:   cfg.Interface,
		CtrlDir:     cfg.CtrlDir,
		Coordinator: coordinator,
		Debug:       cfg.SupplicantDebug,
		Delegate:    loggingDelegate{},
	})

	server, err := ipc.NewServer(facade, cfg.SocketPath)
	if err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logging.Info("shutting down")
		facade.Teardown()
		server.Close()
	}()

	logging.Info("listening on %s", cfg.SocketPath)
	return server.Serve()
}
