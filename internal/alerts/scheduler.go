package alerts

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/famfund/internal/budget"
	"github.com/dukerupert/famfund/internal/model"
	"github.com/dukerupert/famfund/internal/notify"
)

// DefaultInterval is how often the scheduler evaluates without a trigger.
const DefaultInterval = time.Minute

// sinkTimeout bounds delivery of one alert to one sink.
const sinkTimeout = 10 * time.Second

type StateSource interface {
	Snapshot() budget.State
}

type SessionSource interface {
	Current() model.Session
}

// Scheduler evaluates the engine on a ticker and whenever Trigger is called.
// Triggers that arrive during an evaluation collapse into one more run.
type Scheduler struct {
	mu       sync.RWMutex
	engine   *Engine
	state    StateSource
	session  SessionSource
	notifier notify.Notifier
	sinks    []notify.AlertSink
	logger   *slog.Logger
	interval time.Duration
	trigger  chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	now      func() time.Time
}

func NewScheduler(engine *Engine, state StateSource, session SessionSource, notifier notify.Notifier, logger *slog.Logger, interval time.Duration, sinks ...notify.AlertSink) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		engine:   engine,
		state:    state,
		session:  session,
		notifier: notifier,
		sinks:    sinks,
		logger:   logger.With("component", "alerts"),
		interval: interval,
		trigger:  make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Start evaluates once and then keeps evaluating until ctx ends or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.run(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.run(ctx)
			case <-s.trigger:
				s.run(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight evaluation to finish.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Trigger requests an evaluation after a state change. It never blocks.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run(ctx context.Context) []model.Alert {
	alerts, err := s.engine.Evaluate(s.now(), s.state.Snapshot())
	if err != nil {
		s.logger.Error("evaluate thresholds", "error", err)
	}
	if len(alerts) == 0 {
		return alerts
	}

	sess := s.session.Current()
	for _, a := range alerts {
		s.notifier.Notify(a.Kind, a.Message)
		msg := notify.NewAlertMessage(sess.FamilyCode, sess.UserName, a)
		for _, sink := range s.sinks {
			dctx, cancel := context.WithTimeout(ctx, sinkTimeout)
			if err := sink.Deliver(dctx, msg); err != nil {
				s.logger.Warn("deliver alert", "tier", a.Tier, "subject", a.Subject, "error", err)
			}
			cancel()
		}
	}
	s.logger.Info("threshold alerts emitted", "count", len(alerts))
	return alerts
}
