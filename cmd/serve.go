package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/firm-research/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start webhook server for research requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if n, err := e.store.DeleteExpiredPages(ctx); err != nil {
			zap.L().Warn("prune page cache", zap.Error(err))
		} else if n > 0 {
			zap.L().Info("pruned expired cached pages", zap.Int("count", n))
		}

		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"}) //nolint:errcheck
		})

		mux.HandleFunc("POST /webhook/research", func(w http.ResponseWriter, r *http.Request) {
			var subject model.Subject
			if err := json.NewDecoder(r.Body).Decode(&subject); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}
			if subject.URL == "" {
				http.Error(w, `{"error":"url is required"}`, http.StatusBadRequest)
				return
			}

			run, err := e.store.CreateRun(r.Context(), subject)
			if err != nil {
				zap.L().Error("webhook: create run", zap.Error(err))
				http.Error(w, `{"error":"store unavailable"}`, http.StatusInternalServerError)
				return
			}

			// Run asynchronously; the caller polls GET /runs/{id}.
			go func() {
				if err := e.store.UpdateRunStatus(ctx, run.ID, model.RunStatusDiscovering); err != nil {
					zap.L().Error("webhook: update run status", zap.Error(err))
				}
				rec, err := e.newPipeline().Run(ctx, subject)
				if err != nil {
					zap.L().Error("webhook: research failed",
						zap.String("url", subject.URL),
						zap.Error(err),
					)
					if failErr := e.store.FailRun(ctx, run.ID, err.Error()); failErr != nil {
						zap.L().Error("webhook: mark run failed", zap.Error(failErr))
					}
					return
				}
				if err := e.store.UpdateRunResult(ctx, run.ID, rec); err != nil {
					zap.L().Error("webhook: save run result", zap.Error(err))
				}
			}()

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
				"status": "accepted",
				"run_id": run.ID,
			})
		})

		mux.HandleFunc("GET /runs/{id}", func(w http.ResponseWriter, r *http.Request) {
			run, err := e.store.GetRun(r.Context(), r.PathValue("id"))
			if err != nil {
				http.Error(w, `{"error":"run not found"}`, http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(run) //nolint:errcheck
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Error("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("server listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (defaults to config)")
	rootCmd.AddCommand(serveCmd)
}
