package networkmanager

import (
	"testing"

	"github.com/wfdcast/miracastd/internal/p2p"
)

func TestFacade_OperationsFailWhenNotRunning(t *testing.T) {
	f := newTestFacade()

	if err := f.Scan(0); err != ErrNotReady {
		t.Errorf("expected ErrNotReady from Scan, got %v", err)
	}
	if err := f.Connect("02:00:00:00:00:01"); err != ErrNotReady {
		t.Errorf("expected ErrNotReady from Connect, got %v", err)
	}
	if err := f.Disconnect("02:00:00:00:00:01"); err != ErrNotReady {
		t.Errorf("expected ErrNotReady from Disconnect, got %v", err)
	}
	if f.Running() {
		t.Errorf("expected Running() to be false before Setup")
	}
}

func TestFacade_ConnectRejectsEmptyAddress(t *testing.T) {
	f := newTestFacade()
	f.running = true // bypass Setup(), which would spawn a real supplicant process

	err := f.Connect("")
	if err == nil {
		t.Fatal("expected an error for empty address")
	}
	fe, ok := err.(*Error)
	if !ok || fe.Kind != KindParamInvalid {
		t.Errorf("expected KindParamInvalid, got %v", err)
	}
}

func TestFacade_TeardownIsSafeBeforeSetup(t *testing.T) {
	f := newTestFacade()
	f.Teardown() // must not panic
	if f.Running() {
		t.Errorf("expected Running() to stay false")
	}
}

func TestTranslateEngineErr(t *testing.T) {
	cases := []struct {
		in   error
		kind Kind
	}{
		{p2p.ErrUnknownDevice, KindParamInvalid},
		{p2p.ErrAlreadyConnected, KindAlready},
		{p2p.ErrNotCurrentPeer, KindAlready},
	}
	for _, c := range cases {
		got := translateEngineErr(c.in)
		fe, ok := got.(*Error)
		if !ok || fe.Kind != c.kind {
			t.Errorf("translateEngineErr(%v): expected kind %s, got %v", c.in, c.kind, got)
		}
	}
}
