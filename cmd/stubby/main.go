// stubby CLI - serves HTTP and WebSocket stubs from a YAML configuration
package main

import "github.com/getmockd/stubby/pkg/cli"

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cli.Version = Version
	cli.Commit = Commit
	cli.BuildDate = BuildDate
	cli.Execute()
}
