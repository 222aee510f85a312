package controllers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/autopolicy/internal/domain/commands"
	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/infrastructure/repositories/metrics"
)

// ServeController handles the "serve" subcommand: the evaluator ticks on an
// interval while the control API accepts candidates and signals.
type ServeController struct {
	command commands.Serve
	metrics *metrics.PrometheusMetricsRepository
}

// NewServeController creates a new ServeController.
func NewServeController(command commands.Serve, metrics *metrics.PrometheusMetricsRepository) *ServeController {
	return &ServeController{command: command, metrics: metrics}
}

// GetBind returns the Cobra command metadata for the serve controller.
func (it *ServeController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "serve",
		Short: "Run the evaluator continuously with a control API",
		Long: `Keep the evaluator running, ticking every tick_interval.

The control API listens on the configured address:
  GET  /healthz     liveness probe
  GET  /metrics     Prometheus metrics
  GET  /pending     candidates waiting for a decision
  POST /candidates  queue candidates for the next tick (JSON list)
  POST /explain     decision a candidate would get now
  POST /tick        run an evaluation pass now
  POST /trigger     {"key": "..."} flush a group outside its rule window
  POST /complete    {"key": "..."} a change-set was merged or closed
  POST /close       {"packageName": "..."} veto the pending update`,
		Args: cobra.NoArgs,
	}
}

// Execute serves until SIGINT or SIGTERM.
func (it *ServeController) Execute(cmd *cobra.Command, _ []string) error {
	applyVerbose(cmd)
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err = it.command.Prepare(ctx, settings); err != nil {
		return err
	}

	//nolint:exhaustruct // Minimal Server initialization with required fields only
	server := &http.Server{
		Addr:              settings.Listen,
		Handler:           NewRouter(it.command, it.metrics.Handler(), settings.RequestsPerMinute),
		ReadHeaderTimeout: headerTimeout,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Control API listening on %s", settings.Listen)
		listenErr := server.ListenAndServe()
		if errors.Is(listenErr, http.ErrServerClosed) {
			listenErr = nil
		}
		serverErr <- listenErr
		cancel()
	}()

	runErr := it.command.Run(ctx)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancelShutdown()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warnf("Control API shutdown: %v", shutdownErr)
	}
	return errors.Join(runErr, <-serverErr)
}
