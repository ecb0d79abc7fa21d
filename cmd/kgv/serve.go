package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/kgview/pkg/api"
	"github.com/vanderheijden86/kgview/pkg/export"
	"github.com/vanderheijden86/kgview/pkg/source"
	"github.com/vanderheijden86/kgview/pkg/watcher"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(gf *globalFlags) *cobra.Command {
	var (
		addr     string
		noRender bool
	)
	ef := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the graph API, change events and rendered previews over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := gf.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Serve.Addr
			}
			src, closeSrc, err := openSource(cfg)
			if err != nil {
				return err
			}
			defer closeSrc()

			var fw *watcher.Watcher
			if p := watchPath(cfg); p != "" {
				if fw, err = watcher.NewWatcher(p); err != nil {
					return err
				}
			}
			hub := api.NewChangeHub(fw)
			if err := hub.Start(); err != nil {
				return err
			}

			opts := []api.Option{api.WithHub(hub)}
			if cfg.Serve.Token != "" {
				opts = append(opts, api.WithToken(cfg.Serve.Token))
			}
			if !noRender {
				eo, err := ef.options(cfg, true)
				if err != nil {
					hub.Stop()
					return err
				}
				opts = append(opts, api.WithSnapshot(export.Snapshotter(eo)))
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				hub.Stop()
				return fmt.Errorf("listening on %s: %w", addr, err)
			}
			srv := &http.Server{
				Handler:           api.NewServer(src, opts...),
				ReadHeaderTimeout: 10 * time.Second,
			}
			fmt.Fprintf(cmd.OutOrStdout(), "serving %s on http://%s\n", source.Describe(src), ln.Addr())
			return serve(cmd.Context(), srv, ln, hub)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noRender, "no-render", false, "disable the PNG preview and index page")
	cmd.Flags().IntVar(&ef.width, "width", 0, "preview width in logical pixels")
	cmd.Flags().IntVar(&ef.height, "height", 0, "preview height in logical pixels")
	cmd.Flags().Float64Var(&ef.dpr, "dpr", 0, "preview device pixel ratio")
	ef.seed = 1
	return cmd
}

// serve runs srv on ln until ctx is cancelled, then disconnects event
// streams and shuts the server down.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, hub *api.ChangeHub) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Printf("serve: shutting down")
		hub.Stop()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
