package p2p

import "errors"

var (
	// ErrUnknownDevice is returned by Connect when the address is not in
	// the peer table.
	ErrUnknownDevice = errors.New("p2p: unknown device")
	// ErrAlreadyConnected is returned by Connect when a current peer is
	// already set.
	ErrAlreadyConnected = errors.New("p2p: a peer is already current")
	// ErrNotCurrentPeer is returned by Disconnect when the given device
	// is not the current peer.
	ErrNotCurrentPeer = errors.New("p2p: not the current peer")
)
