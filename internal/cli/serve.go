package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	auction "auctions/internal/auctionService"
	auth "auctions/internal/authService"
	"auctions/internal/config"
	"auctions/internal/repository"
	"auctions/internal/server"
	"auctions/utils"
	"auctions/web"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig(ctx, opts)
			if err != nil {
				return err
			}
			if cfg.Production() {
				gin.SetMode(gin.ReleaseMode)
			}

			store, err := openStore(ctx, cfg.DB)
			if err != nil {
				return err
			}
			defer store.Close()

			router, err := buildRouter(cfg, store)
			if err != nil {
				return err
			}
			return serve(ctx, ":"+cfg.Port, router)
		},
	}
}

// buildRouter wires the services on top of store
func buildRouter(cfg *config.Config, store repository.AuctionDB) (http.Handler, error) {
	templates, err := web.Templates()
	if err != nil {
		return nil, err
	}

	authSvc := auth.NewAuthService(store, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	return server.SetupRouter(server.Dependencies{
		Auctions:     auction.NewAuctionService(store),
		Auth:         authSvc,
		Tokens:       authSvc,
		Store:        store,
		Templates:    templates,
		TokenTTL:     cfg.Auth.TokenTTL,
		SecureCookie: cfg.Auth.SecureCookie,
	}), nil
}

// serve runs handler on addr until ctx is cancelled, then drains in-flight requests
func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Info("Starting auction server", map[string]any{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	utils.Info("Shutting down auction server", map[string]any{"addr": addr})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
