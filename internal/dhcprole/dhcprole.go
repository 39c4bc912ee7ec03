// Package dhcprole wraps the system's DHCP client and server binaries so
// the P2P Session Engine can acquire or hand out an address on the group
// interface without reimplementing DHCP. It satisfies p2p.DHCPClient and
// p2p.DHCPServer by shelling out to dhclient/udhcpc and dnsmasq/udhcpd,
// the same "drive an external subprocess" shape the Supplicant Link uses
// for wpa_supplicant itself.
package dhcprole

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/vishvananda/netlink"
)

// ServerLocalAddr is the static address assigned to the group interface
// before the DHCP server binary is started, and the lease range it hands
// out to clients — mirrors the conventional Wi-Fi Direct GO subnet.
const (
	ServerLocalAddr = "192.168.49.1"
	serverCIDR      = ServerLocalAddr + "/24"
)

// Client drives a DHCP client subprocess (dhclient, falling back to
// udhcpc) to acquire a lease on the group interface.
type Client struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	cmd    *exec.Cmd
	leased string
}

// Start launches the DHCP client against iface and polls netlink for the
// assigned address, invoking onAssigned exactly once when one appears.
// The poll loop is a concession to the fact that dhclient/udhcpc don't
// offer a portable "lease acquired" callback; the Engine's own 5s DHCP
// lease timeout bounds how long this is allowed to run before it's
// considered a failure.
func (c *Client) Start(iface string, onAssigned func(addr string)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd != nil {
		return fmt.Errorf("dhcprole: client already running")
	}

	bin, args := clientCommand(iface)
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, bin, args...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("dhcprole: start %s: %w", bin, err)
	}

	c.cancel = cancel
	c.cmd = cmd

	go c.watchLease(ctx, iface, onAssigned)
	go func() { _ = cmd.Wait() }()

	return nil
}

func (c *Client) watchLease(ctx context.Context, iface string, onAssigned func(addr string)) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			addr, ok := firstIPv4(iface)
			if !ok {
				continue
			}
			c.mu.Lock()
			if c.leased != "" {
				c.mu.Unlock()
				return
			}
			c.leased = addr
			c.mu.Unlock()
			onAssigned(addr)
			return
		}
	}
}

// Stop terminates the DHCP client subprocess, if running.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = nil
	c.cmd = nil
	c.leased = ""
}

// LocalAddress returns the most recently leased address, or "".
func (c *Client) LocalAddress() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leased
}

func clientCommand(iface string) (string, []string) {
	if path, err := exec.LookPath("dhclient"); err == nil {
		return path, []string{"-d", iface}
	}
	return "udhcpc", []string{"-f", "-i", iface}
}

// Server assigns the group owner's static address on iface via netlink
// and drives a DHCP server subprocess (dnsmasq, falling back to udhcpd)
// to hand out leases to the group client.
type Server struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	cmd    *exec.Cmd
}

// Start configures iface with ServerLocalAddr and launches the DHCP
// server. Any partial configuration is unwound on failure.
func (s *Server) Start(iface string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return fmt.Errorf("dhcprole: server already running")
	}

	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	link, err := netlink.LinkByName(iface)
	if err != nil {
		return fmt.Errorf("dhcprole: lookup %s: %w", iface, err)
	}

	addr, err := netlink.ParseAddr(serverCIDR)
	if err != nil {
		return fmt.Errorf("dhcprole: parse %s: %w", serverCIDR, err)
	}
	if err := netlink.AddrReplace(link, addr); err != nil {
		return fmt.Errorf("dhcprole: assign %s to %s: %w", serverCIDR, iface, err)
	}
	cleanup = append(cleanup, func() { _ = netlink.AddrDel(link, addr) })

	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("dhcprole: bring up %s: %w", iface, err)
	}

	bin, args := serverCommand(iface)
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, bin, args...)
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("dhcprole: start %s: %w", bin, err)
	}

	s.cancel = cancel
	s.cmd = cmd
	cleanup = nil // committed: Stop() now owns unwinding

	go func() { _ = cmd.Wait() }()
	return nil
}

func serverCommand(iface string) (string, []string) {
	if path, err := exec.LookPath("dnsmasq"); err == nil {
		return path, []string{
			"--keep-in-foreground",
			"--interface=" + iface,
			"--bind-interfaces",
			"--dhcp-range=192.168.49.10,192.168.49.50,12h",
			"--except-interface=lo",
		}
	}
	return "udhcpd", []string{"-f"}
}

// Stop terminates the DHCP server subprocess, if running. The interface
// address is left in place; the P2P group teardown that follows removes
// the interface itself.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = nil
	s.cmd = nil
}

// LocalAddress returns the static group-owner address.
func (s *Server) LocalAddress() string {
	return ServerLocalAddr
}

// firstIPv4 returns the first non-link-local IPv4 address on iface.
func firstIPv4(iface string) (string, bool) {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return "", false
	}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return "", false
	}
	for _, a := range addrs {
		ip := a.IP
		if ip == nil || ip.IsLinkLocalUnicast() {
			continue
		}
		if v4 := ip.To4(); v4 != nil {
			return v4.String(), true
		}
	}
	return "", false
}
