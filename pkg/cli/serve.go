package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/getmockd/stubby/internal/storage"
	"github.com/getmockd/stubby/pkg/cli/internal/ports"
	"github.com/getmockd/stubby/pkg/config"
	"github.com/getmockd/stubby/pkg/engine"
	"github.com/getmockd/stubby/pkg/logging"
	"github.com/getmockd/stubby/pkg/metrics"
	"github.com/getmockd/stubby/pkg/proxy"
	stubtls "github.com/getmockd/stubby/pkg/tls"
)

// EnvStubs names the environment variable consulted when --stubs is not given.
const EnvStubs = "STUBBY_STUBS"

// Default ports.
const (
	DefaultPort    = 8882
	DefaultTLSPort = 7443
)

// ErrNoStubs is returned when neither --stubs nor STUBBY_STUBS is set.
var ErrNoStubs = errors.New("no stubs file given: use --stubs or set " + EnvStubs)

func lookupEnvStubs() string {
	return os.Getenv(EnvStubs)
}

type serveOptions struct {
	*globalOptions

	stubs       string
	host        string
	port        int
	tlsPort     int
	tlsCert     string
	tlsKey      string
	proxyConfig string
	watch       bool
	envExpand   bool

	// ready is called once the listeners are bound.
	ready func(*engine.Server)
}

func newServeCmd(g *globalOptions) *cobra.Command {
	o := &serveOptions{globalOptions: g}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the stub server",
		Long: `Start the stub server on the given stubs file.

The server answers on plain HTTP and, unless --tls-port is 0, on HTTPS as well.
Without --tls-cert and --tls-key a self-signed certificate for localhost is
generated at startup.

Admin endpoints are served under /__stubby.`,
		Example: `  # Serve stubs.yaml on the default ports
  stubby serve --stubs stubs.yaml

  # Reload on change and proxy unmatched requests with the "staging" config
  stubby serve -s stubs.yaml --watch --proxy-config staging`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, o, cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.stubs, "stubs", "s", "", "Path to the YAML stubs file (env "+EnvStubs+")")
	f.StringVar(&o.host, "host", "localhost", "Host to listen on")
	f.IntVarP(&o.port, "port", "p", DefaultPort, "HTTP port")
	f.IntVar(&o.tlsPort, "tls-port", DefaultTLSPort, "HTTPS port, 0 disables HTTPS")
	f.StringVar(&o.tlsCert, "tls-cert", "", "PEM certificate for HTTPS")
	f.StringVar(&o.tlsKey, "tls-key", "", "PEM private key for HTTPS")
	f.StringVar(&o.proxyConfig, "proxy-config", "", "Proxy config uuid used for unmatched requests (default \"default\")")
	f.BoolVarP(&o.watch, "watch", "w", false, "Reload the configuration when the stubs file or its includes change")
	f.BoolVar(&o.envExpand, "env-expand", false, "Expand ${VAR} and ${VAR:-default} references in the stubs file")
	return cmd
}

func runServe(ctx context.Context, o *serveOptions, logOut io.Writer) error {
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

	loadOpts := []config.LoadOption{
		config.WithLogger(logging.Component(log, "config")),
		config.WithEnvExpansion(o.envExpand),
	}
	cfg, err := config.LoadFile(o.stubs, loadOpts...)
	if err != nil {
		return err
	}

	if err := ports.Check(o.host, o.port); err != nil {
		return err
	}
	serverOpts := []engine.ServerOption{
		engine.WithLogger(logging.Component(log, "engine")),
		engine.WithAddr(ports.Addr(o.host, o.port)),
		engine.WithProxySelector(proxy.Selector{Active: o.proxyConfig}),
		engine.WithMetrics(metrics.NewRegistry()),
		engine.WithVersion(Version),
	}
	if o.tlsPort != 0 {
		if err := ports.Check(o.host, o.tlsPort); err != nil {
			return err
		}
		material, err := stubtls.Load(o.tlsCert, o.tlsKey)
		if err != nil {
			return err
		}
		if material.SelfSigned {
			log.Info("using generated self-signed certificate", "subject", material.Leaf.Subject.CommonName)
		}
		serverOpts = append(serverOpts, engine.WithTLS(ports.Addr(o.host, o.tlsPort), material.ServerConfig()))
	}

	srv := engine.NewServer(storage.NewRepository(cfg), serverOpts...)
	if err := srv.Start(); err != nil {
		return err
	}
	log.Info("loaded stubs",
		"path", o.stubs,
		"lifecycles", len(cfg.Lifecycles),
		"proxy_configs", len(cfg.ProxyConfigs),
		"web_socket_configs", len(cfg.WebSocketConfigs),
	)
	if o.ready != nil {
		o.ready(srv)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return srv.Stop()
	})
	if o.watch {
		w, err := config.NewWatcher(o.stubs, cfg.Sources, logging.Component(log, "watcher"), loadOpts...)
		if err != nil {
			_ = srv.Stop()
			return fmt.Errorf("failed to watch %s: %w", o.stubs, err)
		}
		events := w.Start()
		g.Go(func() error {
			defer w.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-events:
					if !ok {
						return nil
					}
					if ev.Err != nil {
						srv.ReloadFailed(ev.Err)
						continue
					}
					srv.Reload(ev.Config)
				}
			}
		})
	}

	err = g.Wait()
	log.Info("stub server stopped")
	return err
}
