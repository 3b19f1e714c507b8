package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/netedit/pkg/api"
	"github.com/newtron-network/netedit/pkg/metrics"
	"github.com/newtron-network/netedit/pkg/model"
	"github.com/newtron-network/netedit/pkg/source"
	"github.com/newtron-network/netedit/pkg/util"
)

var (
	serveListen   string
	serveInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve an editing session over HTTP",
	Long: `Serve one editing session on a node over HTTP under /api/v1, with
Prometheus metrics on /metrics. The node is polled and the session
reconciled whenever it changes.

Examples:
  netedit -N abc123 serve
  netedit -N abc123 serve --listen 0.0.0.0:8080 --interval 5s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveInterval <= 0 {
			return fmt.Errorf("--interval must be positive, got %s", serveInterval)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		b, err := app.connect(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		sess, err := app.openSession(ctx, b)
		if err != nil {
			return err
		}
		collector, err := metrics.NewCollector(nil)
		if err != nil {
			return err
		}
		srv := api.NewServer(api.Config{
			Session:   sess,
			Client:    b.Client,
			Source:    b.Source,
			Checker:   app.checker,
			Collector: collector,
		})

		node := sess.Node()
		go func() {
			err := source.Watch(ctx, b.Source, node, serveInterval, func(snap *model.Snapshot) error {
				srv.Update(snap)
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				util.Errorf("Watch stopped: %v", err)
			}
		}()

		listen := serveListen
		if listen == "" {
			listen = app.settings.GetListenAddr()
		}
		return srv.ListenAndServe(ctx, listen)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default from settings)")
	serveCmd.Flags().DurationVar(&serveInterval, "interval", 2*time.Second, "How often to poll the node")
}
