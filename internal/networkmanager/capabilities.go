package networkmanager

import (
	"fmt"

	"github.com/wfdcast/miracastd/internal/p2p"
)

// Capabilities describes the local Source's advertised WFD capability:
// which roles it supports and the hex sub-element string sent to peers
// via WFD_SUBELEM_SET, alongside a human-readable summary for the
// management surface. Named but not modeled in spec.md's data model;
// this is the [EXPANSION] type backing capabilities()/set_capabilities().
type Capabilities struct {
	Roles      []p2p.Role
	SubElement string
	Summary    string
}

// defaultCapabilities mirrors the Source-only WFD sub-element the
// original hard-codes on connect: "000600101C440032" decodes to a
// primary-sink-capable Source device info field at native/preferred
// resolution, no audio-only constraint.
func defaultCapabilities() Capabilities {
	return Capabilities{
		Roles:      []p2p.Role{p2p.RoleSource},
		SubElement: "000600101C440032",
		Summary:    "Source, native resolution, H.264/AAC",
	}
}

// SetCapabilities replaces the advertised capability set. If the Facade
// is running, the new sub-element is enqueued once as WFD_SUBELEM_SET.
// The supplicant link's handshake on every (re)connect sends the default
// sub-element, not the one stored here.
func (f *Facade) SetCapabilities(c Capabilities) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c.SubElement == "" {
		return NewError(KindParamInvalid, "sub-element is required")
	}
	f.capabilities = c

	if f.running {
		f.link.SetWfdSubElements([]string{c.SubElement})
	}
	return nil
}

// Capabilities returns the currently advertised capability set.
func (f *Facade) Capabilities() Capabilities {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.capabilities
}

func (c Capabilities) String() string {
	return fmt.Sprintf("Capabilities{roles=%v sub_element=%s}", c.Roles, c.SubElement)
}
