package notify

import (
	"context"
	"log/slog"
	"time"
)

// Funnel applies the suppression policy and emits at most one notification
// per Report call.
type Funnel struct {
	policy   *Policy
	notifier Notifier
	metrics  *Metrics
	logger   *slog.Logger
}

// FunnelOption configures a Funnel.
type FunnelOption func(*Funnel)

// WithPolicy sets the suppression policy.
func WithPolicy(p *Policy) FunnelOption {
	return func(f *Funnel) {
		f.policy = p
	}
}

// WithMetrics records shown and suppressed counts.
func WithMetrics(m *Metrics) FunnelOption {
	return func(f *Funnel) {
		f.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FunnelOption {
	return func(f *Funnel) {
		f.logger = logger
	}
}

// NewFunnel creates a funnel delivering to notifier.
func NewFunnel(notifier Notifier, opts ...FunnelOption) *Funnel {
	f := &Funnel{
		policy:   DefaultPolicy(),
		notifier: notifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.notifier == nil {
		f.notifier = NewLogNotifier(f.logger)
	}
	return f
}

// Policy returns the suppression policy in use.
func (f *Funnel) Policy() *Policy {
	return f.policy
}

// Report shows n unless the policy suppresses it. It returns true when the
// notification was handed to the sink.
func (f *Funnel) Report(ctx context.Context, n Notification) bool {
	if f.policy.Suppressed(n.URL, n.Message) {
		f.logger.Debug("Notification suppressed",
			"url", n.URL,
			"status", n.Status,
			"message", n.Message)
		f.metrics.observe(false)
		return false
	}

	if n.Level == "" {
		n.Level = LevelError
	}
	if n.Time.IsZero() {
		n.Time = time.Now()
	}

	if err := f.notifier.Notify(ctx, n); err != nil {
		// Delivery failures are logged only; the failure still counts as shown.
		f.logger.Warn("Failed to deliver notification",
			"url", n.URL,
			"error", err)
	}
	f.metrics.observe(true)
	return true
}
