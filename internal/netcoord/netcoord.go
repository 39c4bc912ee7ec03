// Package netcoord talks to NetworkManager over D-Bus to keep it off the
// P2P interface while wpa_supplicant owns it, and restores management on
// shutdown. Every call here is best-effort: a system with no
// NetworkManager running is a supported configuration, not an error.
package netcoord

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	nmBusName    = "org.freedesktop.NetworkManager"
	nmObjectPath = "/org/freedesktop/NetworkManager"
	nmIface      = "org.freedesktop.NetworkManager"
	deviceIface  = "org.freedesktop.NetworkManager.Device"
	propsIface   = "org.freedesktop.DBus.Properties"
)

// Coordinator holds a system bus connection used to toggle the "Managed"
// property on the interface driving P2P.
type Coordinator struct {
	conn *dbus.Conn

	// cleanup accumulates release actions in acquisition order; Close runs
	// them in reverse, same discipline as asdfmi-bluetooth-chat's connmgr.
	cleanup []func()
}

// New connects to the system bus. A connection failure is returned to the
// caller to log and ignore — NetworkManager coordination degrades
// gracefully when the bus, or NetworkManager itself, is unavailable.
func New() (*Coordinator, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("netcoord: connect system bus: %w", err)
	}
	c := &Coordinator{conn: conn}
	c.cleanup = append(c.cleanup, func() { conn.Close() })
	return c, nil
}

// Close runs every registered release action in reverse order.
func (c *Coordinator) Close() {
	for i := len(c.cleanup) - 1; i >= 0; i-- {
		if c.cleanup[i] != nil {
			c.cleanup[i]()
		}
	}
	c.cleanup = nil
}

// devicePath looks up the NetworkManager device object path for a given
// interface name via GetDeviceByIpIface.
func (c *Coordinator) devicePath(iface string) (dbus.ObjectPath, error) {
	obj := c.conn.Object(nmBusName, nmObjectPath)
	var path dbus.ObjectPath
	err := obj.Call(nmIface+".GetDeviceByIpIface", 0, iface).Store(&path)
	if err != nil {
		return "", fmt.Errorf("netcoord: GetDeviceByIpIface %s: %w", iface, err)
	}
	return path, nil
}

func (c *Coordinator) setManaged(iface string, managed bool) error {
	path, err := c.devicePath(iface)
	if err != nil {
		return err
	}
	obj := c.conn.Object(nmBusName, path)
	call := obj.Call(propsIface+".Set", 0, deviceIface, "Managed", dbus.MakeVariant(managed))
	if call.Err != nil {
		return fmt.Errorf("netcoord: set Managed=%t on %s: %w", managed, iface, call.Err)
	}
	return nil
}

// Unmanage tells NetworkManager to stop managing iface, so
// wpa_supplicant can drive it exclusively. Call before spawning the
// supplicant.
func (c *Coordinator) Unmanage(iface string) error {
	return c.setManaged(iface, false)
}

// Restore hands iface back to NetworkManager. Call on daemon shutdown.
func (c *Coordinator) Restore(iface string) error {
	return c.setManaged(iface, true)
}
