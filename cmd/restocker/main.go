// Command restocker runs the stock monitoring bot and its admin API.
//
// Usage:
//
//	restocker serve
//	restocker serve --interval 15 --port 8090
//	restocker preview 3158263
//	restocker preview "https://shop.example/catalog/product/view/id/3158263"
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kellervogt/restocker/internal/api"
	"github.com/kellervogt/restocker/internal/catalog"
	"github.com/kellervogt/restocker/internal/config"
	"github.com/kellervogt/restocker/internal/headers"
	"github.com/kellervogt/restocker/internal/notify"
	"github.com/kellervogt/restocker/internal/upstream"
	"github.com/kellervogt/restocker/internal/watch"
)

func main() {
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "restocker",
		Short: "Shop restock monitor with cart reservation and webhook alerts",
	}

	root.AddCommand(serveCmd())
	root.AddCommand(previewCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// Upstream adapters for the watch core
// --------------------------------------------------------------------------

type shopSource struct {
	client *upstream.Client
	log    *slog.Logger
}

func (s shopSource) Fetch(ctx context.Context, productID string) (*catalog.Snapshot, error) {
	raw, err := s.client.FetchRaw(ctx, productID)
	if err != nil {
		return nil, err
	}
	snap, err := catalog.Parse(raw)
	if err != nil {
		return nil, err
	}
	s.log.Debug("parsed product", "product", productID, "sizes", len(snap.Sizes))
	return snap, nil
}

type shopReserver struct {
	client *upstream.Client
}

func (s shopReserver) Reserve(ctx context.Context, productID, variantID string) (watch.ReserveResult, error) {
	res, err := s.client.Reserve(ctx, productID, variantID)
	if err != nil {
		return watch.ReserveResult{}, err
	}
	return watch.ReserveResult{Success: res.Success, Message: res.Message}, nil
}

// --------------------------------------------------------------------------
// serve command
// --------------------------------------------------------------------------

func serveCmd() *cobra.Command {
	var intervalSec int
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the monitor and the admin API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if intervalSec > 0 {
				cfg.PollInterval = time.Duration(intervalSec) * time.Second
			}
			if port > 0 {
				cfg.APIPort = port
			}

			logger := newLogger(cfg)
			slog.SetDefault(logger)

			client, creds, sink, err := buildCollaborators(cfg, logger)
			if err != nil {
				return err
			}

			mon := watch.NewMonitor(watch.Options{
				Source:   shopSource{client: client, log: logger},
				Reserver: shopReserver{client: client},
				Notifier: sink,
				Interval: cfg.PollInterval,
				FetchRPS: cfg.FetchRPS,
				Logger:   logger,
			})
			defer mon.Close()

			router := api.NewRouter(mon, creds, sink, cfg, logger)

			addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
			srv := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("admin API listening", "addr", addr, "interval", cfg.PollInterval)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errCh:
				return err
			}
		},
	}

	cmd.Flags().IntVar(&intervalSec, "interval", 0, "poll interval in seconds (overrides POLL_INTERVAL_SECONDS)")
	cmd.Flags().IntVar(&port, "port", 0, "admin API port (overrides API_PORT)")
	return cmd
}

// --------------------------------------------------------------------------
// preview command
// --------------------------------------------------------------------------

func previewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview <product-id|url>",
		Short: "Fetch and print one product snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			productID := args[0]
			if strings.Contains(productID, "/") {
				productID, err = catalog.ParseProductURL(args[0])
				if err != nil {
					return err
				}
			}

			client, _, _, err := buildCollaborators(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 35*time.Second)
			defer cancel()

			raw, err := client.FetchRaw(ctx, productID)
			if err != nil {
				return err
			}
			snap, err := catalog.Parse(raw)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
}

// --------------------------------------------------------------------------
// Wiring helpers
// --------------------------------------------------------------------------

func buildCollaborators(cfg *config.Config, logger *slog.Logger) (*upstream.Client, *upstream.Credentials, *notify.Webhook, error) {
	headers.InitProfilePool(500)
	upstream.SetProxyList(cfg.Proxies)

	creds := upstream.NewCredentials(cfg.Authorization, cfg.Cookie)
	client, err := upstream.New(upstream.Options{
		BaseURL: cfg.ShopBaseURL,
		StoreID: cfg.ShopStoreID,
		Locale:  cfg.ShopLocale,
		Creds:   creds,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	sink, err := notify.NewWebhook(cfg.WebhookURL, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return client, creds, sink, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
