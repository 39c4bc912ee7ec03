package supplicant

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/wfdcast/miracastd/internal/wpamsg"
	"github.com/wfdcast/miracastd/internal/wpaqueue"
)

func newTestLink(t *testing.T, opts ...Option) *Link {
	t.Helper()
	var written []wpamsg.Message
	queue := wpaqueue.New(
		func(msg wpamsg.Message) error { written = append(written, msg); return nil },
		func(wpamsg.Message) {},
		nil,
	)
	return New("p2p0", t.TempDir(), queue, opts...)
}

func TestWrite_FailsWhenNotConnected(t *testing.T) {
	l := newTestLink(t)
	err := l.Write(wpamsg.NewRequest("PING"))
	if err == nil {
		t.Fatal("expected an error when not connected")
	}
}

func TestConfPath_IsStableForInterface(t *testing.T) {
	l := newTestLink(t)
	got := l.confPath()
	if filepath.Base(got) != "supplicant-p2p0.conf" {
		t.Errorf("expected conf file named supplicant-p2p0.conf, got %s", got)
	}
}

func TestWriteConfig_WritesExpectedContent(t *testing.T) {
	l := newTestLink(t)
	if err := l.writeConfig(); err != nil {
		t.Fatalf("writeConfig: %v", err)
	}
	got, err := os.ReadFile(l.confPath())
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	want := "# GENERATED - DO NOT EDIT!\nconfig_methods=pbc\nap_scan=1\n"
	if string(got) != want {
		t.Errorf("config content = %q, want %q", got, want)
	}
}

func TestClose_IsIdempotent(t *testing.T) {
	l := newTestLink(t)
	l.Close()
	l.Close() // must not panic or double-restore
}

func TestClose_RestoresCoordinator(t *testing.T) {
	restored := false
	coord := &fakeCoordinator{
		restore: func(iface string) error { restored = true; return nil },
	}
	l := newTestLink(t, WithCoordinator(coord))
	l.Close()
	if !restored {
		t.Errorf("expected Close to call the coordinator's Restore")
	}
}

func TestSetWfdSubElements_EnqueuesOnePerElement(t *testing.T) {
	var writes []wpamsg.Message
	queue := wpaqueue.New(
		func(msg wpamsg.Message) error { writes = append(writes, msg); return nil },
		func(wpamsg.Message) {},
		nil,
	)
	l := New("p2p0", t.TempDir(), queue)
	l.SetWfdSubElements([]string{"0011", "0022"})

	// The queue puts the next request on the wire only once the head's
	// reply has arrived.
	ok, _ := wpamsg.Parse([]byte("OK"))
	queue.Handle(ok)

	if len(writes) != 2 {
		t.Fatalf("expected 2 WFD_SUBELEM_SET requests, got %d", len(writes))
	}
	for _, w := range writes {
		if w.Name != "WFD_SUBELEM_SET" {
			t.Errorf("expected WFD_SUBELEM_SET, got %s", w.Name)
		}
	}
}

func TestWatch_InvokesOnFailureOnEveryCrashNotJustPermanent(t *testing.T) {
	var failed bool
	l := newTestLink(t, OnFailure(func() { failed = true }))
	l.respawnLeft = respawnLimit // plenty of budget left: not a permanent failure

	cmd := exec.Command("false")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	l.watch(cmd)

	if !failed {
		t.Errorf("expected onFailure to be invoked on an ordinary crash, not only once the respawn budget is exhausted")
	}
	if l.respawnLeft != respawnLimit-1 {
		t.Errorf("expected respawn budget to be decremented, got %d", l.respawnLeft)
	}
}

type fakeCoordinator struct {
	unmanage func(iface string) error
	restore  func(iface string) error
}

func (f *fakeCoordinator) Unmanage(iface string) error {
	if f.unmanage != nil {
		return f.unmanage(iface)
	}
	return nil
}

func (f *fakeCoordinator) Restore(iface string) error {
	if f.restore != nil {
		return f.restore(iface)
	}
	return nil
}
