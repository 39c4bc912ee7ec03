package p2p

// DHCPClient is the contract the Engine drives when it becomes the group
// client: acquire a lease on iface and report the assigned address back
// via onAssigned exactly once. The Engine never reimplements DHCP itself
// (see internal/dhcprole for the subprocess-backed implementation) — this
// interface is the "existing interface" the spec requires using instead.
type DHCPClient interface {
	Start(iface string, onAssigned func(addr string)) error
	Stop()
	LocalAddress() string
}

// DHCPServer is the contract the Engine drives when it becomes the group
// owner.
type DHCPServer interface {
	Start(iface string) error
	Stop()
	LocalAddress() string
}

// Delegate receives device and session notifications from the Engine.
// Per the control-socket protocol's single-threaded contract, the Engine
// invokes these synchronously from whatever goroutine is handling a
// socket event or a service-layer request; implementations must not call
// back into the Engine from within a callback.
type Delegate interface {
	OnDeviceFound(d *Device)
	OnDeviceChanged(d *Device)
	OnDeviceLost(d *Device)
	OnDeviceStateChanged(d *Device)
	OnScanningChanged(scanning bool)
}
