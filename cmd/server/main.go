package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mch-billing/terminal/internal/catalog"
	"github.com/mch-billing/terminal/internal/config"
	"github.com/mch-billing/terminal/internal/logger"
	"github.com/mch-billing/terminal/internal/router"
	"github.com/mch-billing/terminal/internal/service"
	"github.com/mch-billing/terminal/internal/settings"
	"github.com/mch-billing/terminal/internal/ws"
)

const fetchTimeout = 30 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:   "mch-terminal",
		Short: "MCH billing terminal API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(catalogCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the billing terminal API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Catalog file utilities",
	}

	// catalog export
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch the catalog source and write it as an export file",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, _ := cmd.Flags().GetString("source")
			out, _ := cmd.Flags().GetString("out")
			asCSV, _ := cmd.Flags().GetBool("csv")

			if source == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				source = cfg.CatalogSource
			}

			ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()
			items, err := catalog.Fetch(ctx, &http.Client{Timeout: fetchTimeout}, source)
			if err != nil {
				return err
			}

			ext := "json"
			if asCSV {
				ext = "csv"
			}
			if out == "" {
				out = catalog.ExportFileName(time.Now(), ext)
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			defer f.Close()

			if asCSV {
				err = catalog.EncodeCSV(f, items)
			} else {
				err = catalog.EncodeExport(f, items)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d item(s) to %s\n", len(items), out)
			return nil
		},
	}
	exportCmd.Flags().String("source", "", "Catalog URL or file path (default: CATALOG_SOURCE)")
	exportCmd.Flags().String("out", "", "Output file (default: mch_db_<date>.<ext>)")
	exportCmd.Flags().Bool("csv", false, "Write CSV instead of JSON")
	cmd.AddCommand(exportCmd)

	// catalog validate
	validateCmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check that a file would be accepted by catalog import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			items, err := catalog.DecodeImport(f)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d item(s) OK\n", args[0], len(items))
			return nil
		},
	}
	cmd.AddCommand(validateCmd)

	return cmd
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFile, cfg.IsDev())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := settings.Open(ctx, cfg.SettingsBackend, cfg.SettingsPath, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeStore()

	repo := settings.NewRepository(store, log)
	if _, err := repo.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("settings unavailable, using defaults")
	}

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	term := service.NewTerminal(hub, log)
	client := &http.Client{Timeout: fetchTimeout}
	term.BeginLoad(ctx, func(ctx context.Context) ([]catalog.Item, error) {
		return catalog.Fetch(ctx, client, cfg.CatalogSource)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, log, term, repo, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("catalog", cfg.CatalogSource).
			Str("settings", cfg.SettingsBackend).
			Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	return shutdown(srv, log)
}

func shutdown(srv *http.Server, log zerolog.Logger) error {
	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
