// Command miracastctl is the thin CLI client for miracastd's local
// management surface, mirroring the teacher's main.go/client.go
// dispatch-by-os.Args split.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/wfdcast/miracastd/internal/daemonconfig"
	"github.com/wfdcast/miracastd/internal/ipc"
)

const usage = `usage: miracastctl <command> [args]

commands:
  enable
  disable
  scan [timeout-seconds]
  devices
  connect <address>
  disconnect <address>
  status
  capabilities`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	client := ipc.NewClient(daemonconfig.SocketPath())

	var (
		resp ipc.Response
		err  error
	)

	switch os.Args[1] {
	case "enable":
		resp, err = client.Call(ipc.Request{Command: "enable"})
	case "disable":
		resp, err = client.Call(ipc.Request{Command: "disable"})
	case "scan":
		timeout := 0
		if len(os.Args) >= 3 {
			timeout, err = strconv.Atoi(os.Args[2])
			if err != nil {
				fmt.Fprintf(os.Stderr, "invalid timeout: %v\n", err)
				os.Exit(1)
			}
		}
		resp, err = client.Call(ipc.Request{Command: "scan", Timeout: timeout})
	case "devices":
		resp, err = client.Call(ipc.Request{Command: "devices"})
	case "connect":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: miracastctl connect <address>")
			os.Exit(1)
		}
		resp, err = client.Call(ipc.Request{Command: "connect", Address: os.Args[2]})
	case "disconnect":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: miracastctl disconnect <address>")
			os.Exit(1)
		}
		resp, err = client.Call(ipc.Request{Command: "disconnect", Address: os.Args[2]})
	case "status":
		resp, err = client.Call(ipc.Request{Command: "status"})
	case "capabilities":
		resp, err = client.Call(ipc.Request{Command: "capabilities"})
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n%s\n", os.Args[1], usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if resp.Error != nil {
		fmt.Fprintf(os.Stderr, "error: %s: %s\n", resp.Error.Kind, resp.Error.Msg)
		os.Exit(1)
	}

	json.NewEncoder(os.Stdout).Encode(resp)
}
