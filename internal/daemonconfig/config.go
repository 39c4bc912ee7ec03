// Package daemonconfig resolves miracastd's runtime configuration: XDG
// paths for the control socket and supplicant control directory, plus
// flags and environment variables for the handful of knobs an operator
// needs (interface name, log level, debug).
package daemonconfig

import (
	"flag"
	"os"
	"path/filepath"
)

// Config holds the daemon's resolved runtime settings.
type Config struct {
	Interface       string // wireless interface driving P2P, e.g. "p2p0"
	SocketPath      string // local management IPC socket
	CtrlDir         string // wpa_supplicant control socket directory
	SupplicantDebug bool
	LogLevel        string
}

// SocketPath resolves $XDG_RUNTIME_DIR/miracastd.sock, falling back to
// /tmp when the runtime directory is unset — same fallback rule the
// teacher's socketPath() uses for budsctl.sock.
func SocketPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = "/tmp"
	}
	return filepath.Join(dir, "miracastd.sock")
}

// CtrlDir resolves the directory wpa_supplicant binds its control socket
// in, defaulting to the conventional /var/run/wpa_supplicant.
func CtrlDir() string {
	if dir := os.Getenv("MIRACASTD_CTRL_DIR"); dir != "" {
		return dir
	}
	return "/var/run/wpa_supplicant"
}

// Parse builds a Config from environment variables and command-line
// flags; flags take precedence over environment, matching the pattern
// samsungplay-Thruflux's config package follows.
func Parse() Config {
	return parseWithFlagSet(flag.CommandLine, os.Args[1:])
}

func parseWithFlagSet(fs *flag.FlagSet, args []string) Config {
	cfg := Config{
		Interface:  "p2p0",
		SocketPath: SocketPath(),
		CtrlDir:    CtrlDir(),
		LogLevel:   "info",
	}

	if iface := os.Getenv("MIRACASTD_INTERFACE"); iface != "" {
		cfg.Interface = iface
	}
	if lvl := os.Getenv("MIRACASTD_LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if _, set := os.LookupEnv("MIRACAST_SUPPLICANT_DEBUG"); set {
		cfg.SupplicantDebug = true
	}

	fs.StringVar(&cfg.Interface, "interface", cfg.Interface, "P2P-capable wireless interface")
	fs.StringVar(&cfg.SocketPath, "socket", cfg.SocketPath, "local management IPC socket path")
	fs.StringVar(&cfg.CtrlDir, "ctrl-dir", cfg.CtrlDir, "wpa_supplicant control socket directory")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level; \"debug\" shows debug messages, any other value keeps the default level")
	fs.BoolVar(&cfg.SupplicantDebug, "supplicant-debug", cfg.SupplicantDebug, "show wpa_supplicant stdout/stderr instead of suppressing it")
	fs.Parse(args)

	return cfg
}
