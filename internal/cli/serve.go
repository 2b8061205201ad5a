package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/eliza/internal/server"
	"github.com/rcliao/eliza/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve many conversations over HTTP",
		Long:  "Serve the session API and Prometheus metrics. With --watch the script is reloaded on change; live sessions keep their rules.",
		Run:   runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default: server.addr, 127.0.0.1:8080)")
	cmd.Flags().Bool("watch", false, "Reload the script file when it changes")
	cmd.Flags().Bool("persist", false, "Keep session memory in the database instead of process memory")

	v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	v.BindPFlag("server.watch", cmd.Flags().Lookup("watch"))

	RootCmd.AddCommand(cmd)
}

// sessionStore picks where served sessions keep memory.
func sessionStore(persist bool) (store.Store, error) {
	if persist {
		return openStore()
	}
	return store.NewMemStore(nil), nil
}

func runServe(cmd *cobra.Command, args []string) {
	persist, _ := cmd.Flags().GetBool("persist")

	e, err := newEngine()
	if err != nil {
		exitErr("load engine", err)
	}
	st, err := sessionStore(persist)
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	srv := server.New(e, st, logger)
	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if cfg.Server.Watch {
		if cfg.Script == "" {
			logger.Warn("--watch needs --script; the built-in script never changes")
		} else {
			g.Go(func() error {
				return srv.Watch(ctx, cfg.Script, newEngine, server.DefaultDebounce)
			})
		}
	}

	if err := g.Wait(); err != nil {
		exitErr("serve", err)
	}
}
