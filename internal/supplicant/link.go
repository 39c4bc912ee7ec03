// Package supplicant manages the wpa_supplicant subprocess: spawning it
// with a generated config, connecting to its control socket, feeding the
// command queue from the resulting datagram stream, and respawning it
// with a bounded retry budget if it dies.
package supplicant

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/wfdcast/miracastd/internal/logging"
	"github.com/wfdcast/miracastd/internal/wpamsg"
	"github.com/wfdcast/miracastd/internal/wpaqueue"
)

const (
	binPath = "/sbin/wpa_supplicant"

	respawnLimit = 10
	respawnDelay = 2 * time.Second
	connectPoll  = 500 * time.Millisecond
	readBuf      = 1024
)

// UnmanageCoordinator is the subset of *netcoord.Coordinator the link
// depends on, kept as an interface so tests can fake it and so a system
// with no D-Bus NetworkManager still builds and runs.
type UnmanageCoordinator interface {
	Unmanage(iface string) error
	Restore(iface string) error
}

// Link owns the wpa_supplicant subprocess and its control-socket
// connection. It is the Supplicant Link component: everything above it
// talks to wpa_supplicant only through the Queue it feeds.
type Link struct {
	iface   string
	ctrlDir string
	debug   bool
	coord   UnmanageCoordinator

	queue *wpaqueue.Queue

	mu          sync.Mutex
	fd          int
	cmd         *exec.Cmd
	cancel      context.CancelFunc
	respawnLeft int
	closed      bool
	onFailure   func()
}

// Option customizes a Link.
type Option func(*Link)

// WithCoordinator installs a NetworkManager coordinator used to unmanage
// the interface before spawn and restore it on shutdown.
func WithCoordinator(c UnmanageCoordinator) Option {
	return func(l *Link) { l.coord = c }
}

// WithDebug leaves wpa_supplicant's stdout/stderr attached instead of
// suppressing them; -ddd is always passed regardless of this setting.
func WithDebug(debug bool) Option {
	return func(l *Link) { l.debug = debug }
}

// OnFailure registers a callback invoked every time the supplicant
// process exits unexpectedly, before a respawn is scheduled — not only
// once the respawn budget is exhausted. The Facade wires this to
// engine.Reset() so a mid-session crash clears the peer table, stops
// DHCP, and emits device-lost exactly like any other terminal failure.
func OnFailure(f func()) Option {
	return func(l *Link) { l.onFailure = f }
}

// New creates a Link bound to iface, with its control socket rooted at
// ctrlDir, delivering replies and events through queue.
func New(iface, ctrlDir string, queue *wpaqueue.Queue, opts ...Option) *Link {
	l := &Link{
		iface:       iface,
		ctrlDir:     ctrlDir,
		queue:       queue,
		fd:          -1,
		respawnLeft: respawnLimit,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start spawns wpa_supplicant and connects to its control socket.
func (l *Link) Start() error {
	if l.coord != nil {
		if err := l.coord.Unmanage(l.iface); err != nil {
			logging.Warn("supplicant: unmanage %s: %v", l.iface, err)
		}
	}
	return l.spawn()
}

func (l *Link) confPath() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("supplicant-%s.conf", l.iface))
}

func (l *Link) writeConfig() error {
	const config = "# GENERATED - DO NOT EDIT!\nconfig_methods=pbc\nap_scan=1\n"
	return os.WriteFile(l.confPath(), []byte(config), 0600)
}

func (l *Link) spawn() error {
	if err := l.writeConfig(); err != nil {
		return fmt.Errorf("supplicant: write config: %w", err)
	}

	// Drop any left-over control directory so the supplicant can rebind.
	if err := os.RemoveAll(l.ctrlDir); err != nil {
		logging.Warn("supplicant: remove stale control dir %s: %v", l.ctrlDir, err)
	}

	args := []string{"-Dnl80211", "-i" + l.iface, "-C" + l.ctrlDir, "-ddd", "-t", "-K", "-c" + l.confPath(), "-W"}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, binPath, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGKILL}
	if l.debug {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("supplicant: spawn: %w", err)
	}

	l.mu.Lock()
	l.cmd = cmd
	l.cancel = cancel
	l.mu.Unlock()

	go l.watch(cmd)
	go l.connectWhenReady(ctx)

	return nil
}

// watch waits for the process to exit and triggers the respawn sequence
// when it does, unless the link was deliberately closed.
func (l *Link) watch(cmd *exec.Cmd) {
	err := cmd.Wait()

	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return
	}

	logging.Warn("supplicant: process exited: %v", err)
	l.disconnectLocked()
	if l.onFailure != nil {
		l.onFailure()
	}
	l.handleFailure()
}

func (l *Link) handleFailure() {
	l.mu.Lock()
	if l.respawnLeft <= 0 {
		l.mu.Unlock()
		logging.Error("supplicant: respawn budget exhausted, giving up")
		return
	}
	l.respawnLeft--
	l.mu.Unlock()

	time.AfterFunc(respawnDelay, func() {
		if err := l.spawn(); err != nil {
			logging.Error("supplicant: respawn failed: %v", err)
			l.handleFailure()
		}
	})
}

// connectWhenReady polls for the control socket to appear, then connects
// and issues the handshake (ATTACH, SET wifi_display, WFD_SUBELEM_SET).
func (l *Link) connectWhenReady(ctx context.Context) {
	sockPath := filepath.Join(l.ctrlDir, l.iface)
	ticker := time.NewTicker(connectPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := os.Stat(sockPath); err != nil {
				continue
			}
			if err := l.connect(sockPath); err != nil {
				logging.Warn("supplicant: connect: %v", err)
				continue
			}
			l.mu.Lock()
			l.respawnLeft = respawnLimit
			l.mu.Unlock()
			l.handshake()
			return
		}
	}
}

func (l *Link) connect(sockPath string) error {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	if err != nil {
		return fmt.Errorf("socket: %w", err)
	}

	localPath := filepath.Join(os.TempDir(), fmt.Sprintf("%s-%d", l.iface, os.Getpid()))
	os.Remove(localPath)
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: localPath}); err != nil {
		unix.Close(fd)
		return fmt.Errorf("bind: %w", err)
	}

	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: sockPath}); err != nil {
		unix.Close(fd)
		return fmt.Errorf("connect: %w", err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return fmt.Errorf("set nonblock: %w", err)
	}

	l.mu.Lock()
	l.fd = fd
	l.mu.Unlock()

	go l.readLoop(fd)
	return nil
}

// readLoop feeds parsed messages into the command queue until the
// socket is closed.
func (l *Link) readLoop(fd int) {
	buf := make([]byte, readBuf)
	for {
		n, _, err := unix.Recvfrom(fd, buf, 0)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			return
		}
		if n == 0 {
			continue
		}
		msg, err := wpamsg.Parse(buf[:n])
		if err != nil {
			logging.Warn("supplicant: malformed message: %v", err)
			continue
		}
		l.queue.Handle(msg)
	}
}

func (l *Link) write(msg wpamsg.Message) error {
	l.mu.Lock()
	fd := l.fd
	l.mu.Unlock()
	if fd < 0 {
		return fmt.Errorf("supplicant: not connected")
	}
	return unix.Send(fd, msg.Serialize(), 0)
}

// Write is exposed so wpaqueue.New can be constructed with this Link as
// its transport.
func (l *Link) Write(msg wpamsg.Message) error { return l.write(msg) }

func (l *Link) handshake() {
	l.queue.Enqueue(wpamsg.NewRequest("ATTACH"), func(reply wpamsg.Message) {
		if reply.IsFail() {
			logging.Error("supplicant: ATTACH failed")
		}
	})
	l.queue.Enqueue(wpamsg.NewRequest("SET", "wifi_display", 1), nil)
	l.SetWfdSubElements([]string{"000600101C440032"})
}

// SetWfdSubElements sends one WFD_SUBELEM_SET request per element, index
// order, each exactly once — the resolved reading of the original's
// single-send-per-element Open Question.
func (l *Link) SetWfdSubElements(elements []string) {
	for i, el := range elements {
		l.queue.Enqueue(wpamsg.NewRequest("WFD_SUBELEM_SET", i, el), nil)
	}
}

func (l *Link) disconnectLocked() {
	l.mu.Lock()
	fd := l.fd
	l.fd = -1
	l.mu.Unlock()
	if fd >= 0 {
		unix.Close(fd)
	}
}

// Close permanently shuts the link down: the subprocess is killed, the
// control socket closed, and no further respawn is attempted.
func (l *Link) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	cancel := l.cancel
	l.mu.Unlock()

	l.disconnectLocked()
	if cancel != nil {
		cancel()
	}

	if l.coord != nil {
		if err := l.coord.Restore(l.iface); err != nil {
			logging.Warn("supplicant: restore %s: %v", l.iface, err)
		}
	}
}
