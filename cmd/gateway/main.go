// Command gateway is the ic-gateway entrypoint: parse configuration,
// initialize logging, and hand off to internal/core.Run.
//
// Grounded on the teacher's main.go wiring order (flag parse -> log
// setup -> component construction -> run), with the phishlet/terminal/
// REPL-specific steps replaced by SPEC_FULL.md's gateway components.
package main

import (
	"context"
	"os"

	"github.com/boundarygw/ic-gateway/internal/core"
	"github.com/boundarygw/ic-gateway/internal/gwconfig"
	"github.com/boundarygw/ic-gateway/internal/gwlog"
)

const version = "1.0.0"

func main() {
	gwlog.Banner("ic-gateway", version)

	cfg, err := gwconfig.Parse(os.Args[1:])
	if err != nil {
		gwlog.Error("configuration error: %v", err)
		os.Exit(1)
	}

	gwlog.DebugEnable(os.Getenv("IC_GATEWAY_DEBUG") != "")

	if err := core.Run(context.Background(), cfg); err != nil {
		gwlog.Error("fatal: %v", err)
		gwlog.Sync()
		os.Exit(2)
	}
	gwlog.Sync()
}
