package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/codewithmide/token-creator/internal/handler"
	"github.com/codewithmide/token-creator/internal/middleware"
	"github.com/codewithmide/token-creator/internal/services"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Serve the HTTP API used by browser wallets",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(rootOpts)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				return err
			}
			defer app.Close()
			if port > 0 {
				app.Cfg.App.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, app)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides app.port)")
	return cmd
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(app *App, sessions *services.SessionRegistry) *gin.Engine {
	deps := handler.Deps{
		Orchestrator: app.Orch,
		Sessions:     sessions,
		Broadcaster:  app.Ledger,
		Ledger:       app.Ledger,
		RPCURL:       app.Cfg.Solana.RPCURL,
		Log:          app.Log.With("component", "http"),
	}
	if app.Store != nil {
		deps.History = app.Store
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(deps.Log))
	handler.New(deps).RegisterRoutes(r)
	return r
}

func serve(ctx context.Context, app *App) error {
	sessions := services.NewSessionRegistry()
	go sessions.RunSweeper(ctx, time.Minute)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.Cfg.App.Port),
		Handler:           NewRouter(app, sessions),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Log.Info("服务器启动于端口 %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapExitError(ExitFailure, "http server", err)
	case <-ctx.Done():
	}

	app.Log.Info("正在关闭服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
