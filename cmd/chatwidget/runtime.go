package main

import (
	"context"
	"fmt"
	"log/slog"

	"chatwidget/internal/adapter/backend"
	"chatwidget/internal/adapter/channel"
	"chatwidget/internal/adapter/tui/widget"
	"chatwidget/internal/domain"
	"chatwidget/internal/infra/config"
	"chatwidget/internal/infra/logger"
	"chatwidget/internal/infra/tracer"
	"chatwidget/internal/usecase/eventbus"
	"chatwidget/internal/usecase/session"
)

// runtime holds the ambient stack shared by every command.
type runtime struct {
	cfg     *config.Config
	log     *slog.Logger
	cleanup []func()
}

// setup loads config and starts the logger and tracer. A TUI owns the
// terminal, so terminal log outputs are discarded for it.
func setup(ctx context.Context, cfgPath string, tui bool) (*runtime, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if tui && (cfg.Logger.Output == "stderr" || cfg.Logger.Output == "stdout" || cfg.Logger.Output == "") {
		cfg.Logger.Output = "discard"
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	rt := &runtime{cfg: cfg, log: log}
	rt.cleanup = append(rt.cleanup, func() { _ = logCloser() })

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("tracer: %w", err)
	}
	rt.cleanup = append(rt.cleanup, func() { _ = tracerShutdown(context.Background()) })
	return rt, nil
}

func (rt *runtime) close() {
	for i := len(rt.cleanup) - 1; i >= 0; i-- {
		rt.cleanup[i]()
	}
}

// runWidget wires the channel adapter and session controller and runs the
// TUI until it exits.
func (rt *runtime) runWidget(ctx context.Context, endpoint domain.EndpointConfig, startOpen bool) error {
	bus := eventbus.New(rt.log)
	defer bus.Close()

	adapter := channel.NewAdapter(rt.log, bus, channel.Options{
		DialTimeout: rt.cfg.Endpoint.DialTimeout,
		ReadLimit:   rt.cfg.Endpoint.ReadLimit,
		QueueSize:   rt.cfg.Endpoint.QueueSize,
		Breaker: channel.BreakerConfig{
			MaxFailures: rt.cfg.Breaker.MaxFailures,
			Timeout:     rt.cfg.Breaker.Timeout,
		},
	})

	w := rt.cfg.Widget
	ctrl := session.New(session.Config{
		Adapter:         adapter,
		Endpoint:        endpoint,
		Bus:             bus,
		Logger:          rt.log,
		WelcomeID:       w.WelcomeID,
		WelcomeCategory: w.WelcomeCategory,
		FeedbackReasons: w.FeedbackReasons,
		NoticeTitle:     w.NoticeTitle,
		NoticeBody:      w.NoticeBody,
	})
	defer ctrl.Shutdown()

	program := widget.NewProgram(widget.ModelDeps{
		Controller: ctrl,
		Logger:     rt.log,
		Title:      "chatwidget",
		StartOpen:  startOpen,
	}, bus)
	return program.Run(ctx)
}

// newBackend builds the mock backend with an in-memory or SQLite feedback
// sink. The caller closes the sink.
func (rt *runtime) newBackend() (*backend.Server, backend.FeedbackSink, error) {
	b := rt.cfg.Backend

	var sink backend.FeedbackSink = backend.NewMemorySink()
	if b.FeedbackDB != "" {
		s, err := backend.NewSQLiteSink(b.FeedbackDB)
		if err != nil {
			return nil, nil, fmt.Errorf("feedback sink: %w", err)
		}
		sink = s
	}

	topics := make([]domain.TopicSuggestion, len(b.Topics))
	for i, t := range b.Topics {
		topics[i] = domain.TopicSuggestion{Title: t.Title, Description: t.Description, Message: t.Message}
	}

	srv := backend.NewServer(backend.Config{
		Addr:           b.Addr,
		Path:           b.Path,
		FragmentRate:   b.FragmentRate,
		FragmentBurst:  b.FragmentBurst,
		Topics:         topics,
		UpgradesPerMin: b.UpgradesPerMin,
		UpgradeBurst:   b.UpgradeBurst,
	}, sink, rt.log)
	return srv, sink, nil
}
