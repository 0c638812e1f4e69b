package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/stubby/pkg/logging"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	logLevel   string
	logFormat  string
	jsonOutput bool
}

// logger builds the operational logger from the persistent flags. Logs go
// to stderr so command output on stdout stays machine readable.
func (o *globalOptions) logger(w io.Writer) (*slog.Logger, error) {
	level, err := logging.LookupLevel(o.logLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.LookupFormat(o.logFormat)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Config{Level: level, Format: format, Output: w}), nil
}

// NewRootCmd builds the stubby command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "stubby",
		Short: "stubby serves HTTP and WebSocket stubs from a YAML configuration",
		Long: `stubby answers HTTP requests with canned responses declared in a YAML file.
Requests that match no stub can be proxied to a real service, and web socket
endpoints can replay scripted message exchanges.`,
		// No Run function here means 'stubby' with no args will print help text by default.
		SilenceUsage:  true,
		SilenceErrors: true, // We handle errors in Execute()
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log format (text, json)")
	pf.BoolVar(&opts.jsonOutput, "json", false, "Output command results in JSON format")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newValidateCmd(opts),
		newVersionCmd(opts),
	)
	return rootCmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
