package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkpress/storefront/internal/assets"
	"github.com/inkpress/storefront/internal/cart"
	"github.com/inkpress/storefront/internal/catalog"
	"github.com/inkpress/storefront/internal/handlers"
	"github.com/inkpress/storefront/internal/printarea"
	"github.com/inkpress/storefront/internal/templates"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		port           string
		dataDir        string
		catalogFile    string
		printAreasFile string
		templatesFile  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the storefront web server",
		Long: `Starts the storefront HTTP API on the specified port.

Customizer sessions are driven over JSON endpoints or a WebSocket. Uploaded
images, production files and the cart database live under the data dir.`,
		Example: `  # Start server on default port 8888
  storefront serve

  # Start server on custom port with a catalog exported to Parquet
  storefront serve --port 3000 --catalog products.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Port = port
			}
			if flags.Changed("data-dir") {
				cfg.DataDir = dataDir
			}
			if flags.Changed("catalog") {
				cfg.CatalogFile = catalogFile
			}
			if flags.Changed("print-areas") {
				cfg.PrintAreasFile = printAreasFile
			}
			if flags.Changed("templates") {
				cfg.TemplatesFile = templatesFile
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := opts.logger

			products := catalog.Default()
			if cfg.CatalogFile != "" {
				var err error
				if products, err = catalog.LoadCatalog(cfg.CatalogFile); err != nil {
					return err
				}
			}
			areas := printarea.Default()
			if cfg.PrintAreasFile != "" {
				var err error
				if areas, err = printarea.Load(cfg.PrintAreasFile); err != nil {
					return err
				}
			}
			library := templates.Default()
			if cfg.TemplatesFile != "" {
				var err error
				if library, err = templates.Load(cfg.TemplatesFile); err != nil {
					return err
				}
			}

			carts, err := cart.Open(cfg.CartPath(), logger)
			if err != nil {
				return err
			}
			defer carts.Close()
			assetStore, err := assets.NewStore(cfg.UploadDir(), logger)
			if err != nil {
				return err
			}
			assetStore.MaxPixels = cfg.MaxUploadPixels

			handler, err := handlers.New(handlers.Options{
				Config:     cfg,
				Catalog:    products,
				PrintAreas: areas,
				Templates:  library,
				Assets:     assetStore,
				Cart:       carts,
				Logger:     logger,
			})
			if err != nil {
				return fmt.Errorf("failed to build handlers: %w", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go sweepSessions(ctx, handler, sweepInterval(cfg.SessionTTL))

			addr := ":" + cfg.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				logger.Info("Storefront available",
					"addr", addr,
					"url", "http://localhost"+addr,
					"products", products.Len(),
					"data_dir", cfg.DataDir,
				)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				logger.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("Server shutdown failed", "err", err)
					return err
				}
				logger.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&dataDir, "data-dir", "data", "Directory for uploads, exports and the cart database")
	cmd.Flags().StringVar(&catalogFile, "catalog", "", "Product catalog file (.yaml, .json, .jsonl or .parquet)")
	cmd.Flags().StringVar(&printAreasFile, "print-areas", "", "Print area definitions (.yaml)")
	cmd.Flags().StringVar(&templatesFile, "templates", "", "Design template library (.yaml)")

	return cmd
}

func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	return interval
}

func sweepSessions(ctx context.Context, handler *handlers.Handler, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			handler.SweepSessions(now)
		}
	}
}
