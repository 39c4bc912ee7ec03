package networkmanager

import (
	"strings"
	"testing"

	"github.com/wfdcast/miracastd/internal/p2p"
)

func newTestFacade() *Facade {
	return New(Config{Interface: "p2p0", CtrlDir: "/tmp"})
}

func TestDefaultCapabilities(t *testing.T) {
	f := newTestFacade()
	c := f.Capabilities()

	if len(c.Roles) != 1 || c.Roles[0] != p2p.RoleSource {
		t.Errorf("expected default roles to be [Source], got %v", c.Roles)
	}
	if c.SubElement != "000600101C440032" {
		t.Errorf("unexpected default sub-element: %s", c.SubElement)
	}
}

func TestSetCapabilities_RejectsEmptySubElement(t *testing.T) {
	f := newTestFacade()

	err := f.SetCapabilities(Capabilities{Roles: []p2p.Role{p2p.RoleSource}})
	if err == nil {
		t.Fatal("expected an error for empty sub-element")
	}
	fe, ok := err.(*Error)
	if !ok || fe.Kind != KindParamInvalid {
		t.Errorf("expected KindParamInvalid, got %v", err)
	}
}

func TestSetCapabilities_UpdatesWhenNotRunning(t *testing.T) {
	f := newTestFacade()

	want := Capabilities{Roles: []p2p.Role{p2p.RoleSource}, SubElement: "00AA", Summary: "custom"}
	if err := f.SetCapabilities(want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := f.Capabilities()
	if got.SubElement != want.SubElement || got.Summary != want.Summary {
		t.Errorf("expected capabilities %v, got %v", want, got)
	}
}

func TestCapabilitiesString(t *testing.T) {
	c := Capabilities{Roles: []p2p.Role{p2p.RoleSource}, SubElement: "00AA"}
	s := c.String()
	if !strings.Contains(s, "00AA") {
		t.Errorf("expected String() to mention the sub-element, got %s", s)
	}
}
