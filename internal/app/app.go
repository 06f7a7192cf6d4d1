package app

import (
	"context"
	"errors"
	"os"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Panorama-Block/fairyring-monitor/internal/api"
	"github.com/Panorama-Block/fairyring-monitor/internal/config"
	"github.com/Panorama-Block/fairyring-monitor/internal/event"
	"github.com/Panorama-Block/fairyring-monitor/internal/extractor"
	"github.com/Panorama-Block/fairyring-monitor/internal/kafka"
	"github.com/Panorama-Block/fairyring-monitor/internal/metrics"
	"github.com/Panorama-Block/fairyring-monitor/internal/webhook"
	"github.com/Panorama-Block/fairyring-monitor/internal/websocket"
)

// Process exit codes.
const (
	ExitOK              = 0
	ExitRuntime         = 1
	ExitUsage           = 2
	ExitAlreadyExecuted = 3
	ExitNotEncrypted    = 4
	ExitNotFound        = 5
	ExitTxFailed        = 6
)

// App represents the main application
type App struct {
	config        *config.Config
	logger        *logrus.Logger
	api           *api.Client
	bus           *event.Bus
	kafkaProducer *kafka.AlertProducer
	metricsServer *metrics.Server
}

// workflow is one monitor run. Only the encrypted tx monitor reports an
// outcome; the others return OutcomeUnknown.
type workflow func(ctx context.Context) (extractor.Outcome, error)

// NewLogger builds the process logger. An unknown level keeps the default.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

func moduleLogger(logger *logrus.Logger, module string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{"module": module})
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, logger *logrus.Logger) (*App, error) {
	a := &App{
		config: cfg,
		logger: logger,
		api:    api.NewClient(cfg.RPCURL, cfg.HTTPTimeout, moduleLogger(logger, "api")),
	}

	sinks := []event.Sink{webhook.NewSender(cfg.SlackWebhookURL, cfg.HTTPTimeout, moduleLogger(logger, "webhook"))}
	if cfg.KafkaBroker != "" {
		producer, err := kafka.NewAlertProducer(cfg.KafkaBroker, cfg.KafkaTopicAlerts, cfg.HTTPTimeout, moduleLogger(logger, "kafka"))
		if err != nil {
			return nil, err
		}
		a.kafkaProducer = producer
		sinks = append(sinks, producer)
	}
	a.bus = event.NewBus(cfg.AlertQueueSize, moduleLogger(logger, "event"), sinks...)

	if cfg.MetricsPort != "" {
		a.metricsServer = metrics.NewServer(cfg.MetricsPort, moduleLogger(logger, "metrics"))
	}
	return a, nil
}

func (a *App) dial(ctx context.Context, name string) (extractor.Stream, error) {
	session, err := websocket.Dial(ctx, a.config.WebsocketURL, name, moduleLogger(a.logger, name))
	if err != nil {
		return nil, err
	}
	return session, nil
}

// RunAggregatedKey alerts on aggregated keys until the stream ends or ctx is
// cancelled, and returns the process exit code.
func (a *App) RunAggregatedKey(ctx context.Context) int {
	m := extractor.NewAggregatedKeyMonitor(a.dial, a.bus, moduleLogger(a.logger, extractor.NameAggregatedKey))
	return a.run(ctx, func(ctx context.Context) (extractor.Outcome, error) {
		return extractor.OutcomeUnknown, m.Run(ctx)
	})
}

// RunTransfer alerts on transfers of address above threshold.
func (a *App) RunTransfer(ctx context.Context, address string, threshold *uint256.Int) int {
	m := extractor.NewTransferMonitor(a.dial, a.bus, address, threshold, moduleLogger(a.logger, extractor.NameTransfer))
	return a.run(ctx, func(ctx context.Context) (extractor.Outcome, error) {
		return extractor.OutcomeUnknown, m.Run(ctx)
	})
}

// RunEncryptedTx follows one encrypted transaction until it is decided.
func (a *App) RunEncryptedTx(ctx context.Context, txHash string) int {
	m := extractor.NewEncryptedTxMonitor(a.api, a.dial, a.bus, a.config.ConfirmStrategy, moduleLogger(a.logger, extractor.NameEncryptedTx))
	return a.run(ctx, func(ctx context.Context) (extractor.Outcome, error) {
		return m.Run(ctx, txHash)
	})
}

func (a *App) run(ctx context.Context, wf workflow) int {
	a.bus.Start(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	var outcome extractor.Outcome
	g.Go(func() error {
		// stops the metrics server once the workflow is over
		defer cancel()
		var err error
		outcome, err = wf(gctx)
		return err
	})
	if a.metricsServer != nil {
		g.Go(func() error {
			return a.metricsServer.Run(gctx)
		})
	}
	err := g.Wait()

	a.bus.Close()
	if a.kafkaProducer != nil {
		a.kafkaProducer.Close()
	}

	code := ExitCode(outcome, err, ctx.Err() != nil)
	entry := a.logger.WithFields(logrus.Fields{"outcome": outcome.String(), "exit_code": code})
	if code == ExitRuntime {
		entry.WithError(err).Error("monitor stopped")
	} else {
		entry.Info("monitor stopped")
	}
	return code
}

// ExitCode maps the result of a workflow to a process exit code. A
// cancellation caused by a signal is a clean stop.
func ExitCode(outcome extractor.Outcome, err error, signalled bool) int {
	if err != nil {
		if signalled && errors.Is(err, context.Canceled) {
			return ExitOK
		}
		return ExitRuntime
	}
	switch outcome {
	case extractor.OutcomeAlreadyExecuted:
		return ExitAlreadyExecuted
	case extractor.OutcomeNotEncrypted:
		return ExitNotEncrypted
	case extractor.OutcomeNotFound:
		return ExitNotFound
	case extractor.OutcomeTxFailed:
		return ExitTxFailed
	default:
		return ExitOK
	}
}
