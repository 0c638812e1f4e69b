package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/stubby/pkg/cli/internal/output"
	"github.com/getmockd/stubby/pkg/config"
	"github.com/getmockd/stubby/pkg/logging"
)

// ValidateOutput is the JSON result of a successful validation.
type ValidateOutput struct {
	Valid            bool        `json:"valid"`
	Path             string      `json:"path"`
	Lifecycles       int         `json:"lifecycles"`
	ProxyConfigs     int         `json:"proxyConfigs"`
	WebSocketConfigs int         `json:"webSocketConfigs"`
	Sources          []string    `json:"sources"`
	Warnings         []string    `json:"warnings,omitempty"`
	Stubs            []StubEntry `json:"stubs"`
}

// StubEntry summarizes one lifecycle.
type StubEntry struct {
	ResourceID int    `json:"resourceId"`
	Methods    string `json:"methods"`
	URL        string `json:"url"`
	Responses  int    `json:"responses"`
}

type validateOptions struct {
	*globalOptions

	stubs     string
	print     bool
	envExpand bool
}

func newValidateCmd(g *globalOptions) *cobra.Command {
	o := &validateOptions{globalOptions: g}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a stubs file without serving it",
		Example: `  stubby validate -s stubs.yaml
  stubby validate -s stubs.yaml --print`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(o, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.stubs, "stubs", "s", "", "Path to the YAML stubs file (env "+EnvStubs+")")
	f.BoolVar(&o.print, "print", false, "Print the loaded configuration as YAML")
	f.BoolVar(&o.envExpand, "env-expand", false, "Expand ${VAR} and ${VAR:-default} references in the stubs file")
	return cmd
}

func runValidate(o *validateOptions, out, logOut io.Writer) error {
	if o.stubs == "" {
		o.stubs = lookupEnvStubs()
	}
	if o.stubs == "" {
		return ErrNoStubs
	}
	log, err := o.logger(logOut)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFile(o.stubs,
		config.WithLogger(logging.Component(log, "config")),
		config.WithEnvExpansion(o.envExpand),
	)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if o.print {
		rendered, err := config.RenderAll(cfg)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, rendered)
		return err
	}

	result := summarize(o.stubs, cfg)
	if o.jsonOutput {
		return output.WriteJSON(out, result)
	}

	fmt.Fprintf(out, "%s is valid: %d stubs, %d proxy configs, %d web socket configs\n",
		result.Path, result.Lifecycles, result.ProxyConfigs, result.WebSocketConfigs)
	if len(result.Stubs) > 0 {
		tw := output.Table(out)
		fmt.Fprintln(tw, "ID\tMETHODS\tURL\tRESPONSES")
		for _, s := range result.Stubs {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", s.ResourceID, s.Methods, s.URL, s.Responses)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", w)
	}
	return nil
}

func summarize(path string, cfg *config.Configuration) ValidateOutput {
	result := ValidateOutput{
		Valid:            true,
		Path:             path,
		Lifecycles:       len(cfg.Lifecycles),
		ProxyConfigs:     len(cfg.ProxyConfigs),
		WebSocketConfigs: len(cfg.WebSocketConfigs),
		Sources:          cfg.Sources,
		Stubs:            make([]StubEntry, 0, len(cfg.Lifecycles)),
	}
	for _, w := range cfg.Warnings {
		result.Warnings = append(result.Warnings, w.String())
	}
	for _, lc := range cfg.Lifecycles {
		result.Stubs = append(result.Stubs, StubEntry{
			ResourceID: lc.ResourceID,
			Methods:    strings.Join(lc.Request.Methods, ","),
			URL:        lc.Request.URL,
			Responses:  len(lc.Responses),
		})
	}
	return result
}
