package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/khanglvm/cal-suggest/internal/logging"
	"github.com/khanglvm/cal-suggest/internal/metrics"
	"github.com/khanglvm/cal-suggest/internal/storage"
	"github.com/khanglvm/cal-suggest/internal/suggest"
)

const shutdownTimeout = 5 * time.Second

// maintainStatus is what /status serves and the status log reports.
type maintainStatus struct {
	suggest.Status
	Breaker string `json:"breaker,omitempty"`
}

func (a *app) status() maintainStatus {
	st := maintainStatus{Status: a.service.Status()}
	if a.breaker != nil {
		st.Breaker = a.breaker.State().String()
	}
	return st
}

func (a *app) logStatus() {
	st := a.status()
	ev := logging.Info().
		Time("last_refresh", st.LastRefresh).
		Int("queued_feedback", st.QueuedFeedback)
	if st.Breaker != "" {
		ev = ev.Str("breaker", st.Breaker)
	}
	for _, e := range st.Engines {
		if e.UserID == storage.AnyUser {
			ev = ev.Bool("trained", e.Trained).Int("events", e.Events).Float64("threshold", e.Threshold)
		}
	}
	ev.Int("engines", len(st.Engines)).Msg("status")
}

func (a *app) serveStatus(w http.ResponseWriter, r *http.Request) {
	data, err := json.Marshal(a.status())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// NewMaintainCmd creates the 'maintain' command that runs periodic
// refreshes in the foreground.
func NewMaintainCmd() *cobra.Command {
	var (
		metricsAddr    string
		statusInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Run periodic suggestion refreshes",
		Long: `Run the suggestion maintenance loop in the foreground.

Dismissed suggestions older than suggest.retention are purged at startup
and then once every suggest.refresh_interval. With suggest.warm_on_refresh
each purge is followed by computing today's suggestions for every user.
When a metrics address is set, Prometheus metrics are served on /metrics
and a JSON status on /status.

Stops on SIGINT, SIGTERM or SIGQUIT.`,
		Example: `  cal-suggest maintain
  cal-suggest maintain --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaintain(metricsAddr, statusInterval)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides metrics.addr)")
	cmd.Flags().DurationVar(&statusInterval, "status-interval", 5*time.Minute, "How often to log service status (0 disables)")

	return cmd
}

func runMaintain(metricsAddr string, statusInterval time.Duration) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	if metricsAddr == "" {
		metricsAddr = a.cfg.Metrics.Addr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)

	var srv *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/status", a.serveStatus)
		srv = &http.Server{
			Addr:              metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logging.Info().Str("addr", metricsAddr).Msg("serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.service.Run(ctx)
	}()

	logging.Info().
		Dur("interval", a.cfg.Suggest.RefreshInterval).
		Dur("retention", a.cfg.Suggest.Retention).
		Msg("maintenance loop started")

	var statusTick <-chan time.Time
	if statusInterval > 0 {
		ticker := time.NewTicker(statusInterval)
		defer ticker.Stop()
		statusTick = ticker.C
	}

	var runErr error
wait:
	for {
		select {
		case <-statusTick:
			a.logStatus()
		case sig := <-sigChan:
			logging.Info().Str("signal", sig.String()).Msg("shutting down")
			break wait
		case runErr = <-errChan:
			logging.Error().Err(runErr).Msg("shutting down")
			break wait
		}
	}

	cancel()
	<-done

	if srv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("metrics server shutdown")
		}
	}

	a.logStatus()
	logging.Info().Msg("shutdown complete")
	return runErr
}
