package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/pgrooms/client"
	"github.com/c360studio/pgrooms/config"
	"github.com/c360studio/pgrooms/credential"
	"github.com/c360studio/pgrooms/notify"
	"github.com/c360studio/pgrooms/service"
)

// App is the main application that wires together all components.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	errOut io.Writer

	// Credential
	store     credential.Store
	fileStore *credential.FileStore

	// Notifications
	recorder *notify.Recorder
	natsConn *nats.Conn

	// Metrics
	registry      *prometheus.Registry
	metricsServer *http.Server
	metricsAddr   net.Addr

	client   *client.Client
	services *service.Services

	cancelWatch context.CancelFunc
	watchDone   chan struct{}
}

// NewApp creates a new application instance. Toasts are written to errOut.
func NewApp(cfg *config.Config, logger *slog.Logger, errOut io.Writer) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{
		cfg:      cfg,
		logger:   logger,
		errOut:   errOut,
		recorder: notify.NewRecorder(),
		registry: prometheus.NewRegistry(),
	}

	if err := app.initCredentials(); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *App) initCredentials() error {
	passphrase := a.cfg.Passphrase()
	if a.cfg.Credential.Backend == config.BackendNATSKV && passphrase != "" {
		// Opened in Start once NATS is connected.
		return nil
	}
	if a.cfg.Credential.Path == "" || passphrase == "" {
		a.logger.Warn("Credential passphrase not set, session will not persist",
			"env", a.cfg.Credential.PassphraseEnv)
		a.store = credential.NewMemoryStore("")
		return nil
	}

	fs, err := credential.NewFileStore(a.cfg.Credential.Path, passphrase, credential.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	a.fileStore = fs
	a.store = fs
	return nil
}

// Start connects optional sinks, starts the metrics endpoint and builds the
// API client.
func (a *App) Start(ctx context.Context) error {
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sinks := notify.Multi{notify.NotifierFunc(a.toast), a.recorder}
	if a.cfg.NATS.URL != "" {
		nc, err := notify.ConnectNATS(a.cfg.NATS.URL,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(time.Second),
			nats.Timeout(5*time.Second))
		if err != nil {
			return err
		}
		a.natsConn = nc
		sinks = append(sinks, notify.NewNATSNotifier(nc, a.cfg.Notify.NATSSubject))
		a.logger.Debug("Publishing notifications to NATS",
			"url", a.cfg.NATS.URL,
			"subject", a.cfg.Notify.NATSSubject)
	}
	if a.store == nil {
		if err := a.openKVStore(ctx); err != nil {
			return err
		}
	}

	policy := notify.DefaultPolicy()
	if len(a.cfg.Notify.SuppressEndpoints) > 0 || len(a.cfg.Notify.SuppressMessages) > 0 {
		endpoints := a.cfg.Notify.SuppressEndpoints
		if len(endpoints) == 0 {
			endpoints = notify.DefaultSuppressedEndpoints
		}
		messages := a.cfg.Notify.SuppressMessages
		if len(messages) == 0 {
			messages = notify.DefaultSuppressedMessages
		}
		p, err := notify.NewPolicy(endpoints, messages)
		if err != nil {
			return fmt.Errorf("notification policy: %w", err)
		}
		policy = p
	}

	funnel := notify.NewFunnel(sinks,
		notify.WithPolicy(policy),
		notify.WithMetrics(notify.NewMetrics(a.registry)),
		notify.WithLogger(a.logger))

	c, err := client.New(a.cfg.API.BaseURL,
		client.WithTimeout(a.cfg.API.Timeout),
		client.WithCredentials(a.store),
		client.WithFunnel(funnel),
		client.WithRetryConfig(client.RetryConfig{
			MaxRetries:        a.cfg.Retry.MaxRetries,
			BackoffBase:       a.cfg.Retry.BackoffBase,
			BackoffMultiplier: 2,
		}),
		client.WithUnauthorizedHandler(func(_ context.Context, _ *client.Error) {
			_, _ = fmt.Fprintln(a.errOut, "Session expired. Run 'pgrooms login' to sign in again.")
		}),
		client.WithMetrics(client.NewMetrics(a.registry)),
		client.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("create API client: %w", err)
	}
	a.client = c
	a.services = service.New(c)

	if a.fileStore != nil {
		watchCtx, cancel := context.WithCancel(ctx)
		a.cancelWatch = cancel
		a.watchDone = make(chan struct{})
		go func() {
			defer close(a.watchDone)
			if err := a.fileStore.Watch(watchCtx); err != nil {
				a.logger.Debug("Credential watch stopped", "error", err)
			}
		}()
	}

	if a.cfg.Metrics.Addr != "" {
		if err := a.startMetrics(); err != nil {
			return err
		}
	}
	return nil
}

// openKVStore keeps the session in a JetStream KV bucket shared by every
// process pointed at the same NATS server.
func (a *App) openKVStore(ctx context.Context) error {
	if a.natsConn == nil {
		return fmt.Errorf("credential backend %s requires nats.url", config.BackendNATSKV)
	}
	js, err := jetstream.New(a.natsConn)
	if err != nil {
		return fmt.Errorf("create jetstream context: %w", err)
	}

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	kv, err := credential.OpenBucket(openCtx, js, a.cfg.Credential.Bucket)
	if err != nil {
		return err
	}

	store, err := credential.NewKVStore(kv, a.cfg.Credential.Session, a.cfg.Passphrase(),
		credential.WithKVLogger(a.logger))
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	a.store = store
	a.logger.Debug("Using NATS KV credential store",
		"bucket", a.cfg.Credential.Bucket,
		"session", a.cfg.Credential.Session)
	return nil
}

func (a *App) startMetrics() error {
	ln, err := net.Listen("tcp", a.cfg.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("listen on metrics address: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))

	a.metricsAddr = ln.Addr()
	a.metricsServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := a.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server failed", "error", err)
		}
	}()
	a.logger.Debug("Serving metrics", "addr", a.metricsAddr.String())
	return nil
}

// Services returns the domain services. Start must have been called.
func (a *App) Services() *service.Services {
	return a.services
}

// Notifications returns the notifications shown so far.
func (a *App) Notifications() []notify.Notification {
	return a.recorder.Notifications()
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(timeout time.Duration) {
	if a.cancelWatch != nil {
		a.cancelWatch()
		select {
		case <-a.watchDone:
		case <-time.After(timeout):
			a.logger.Warn("Credential watch did not stop in time")
		}
	}

	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.logger.Warn("Metrics server shutdown failed", "error", err)
		}
	}

	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.natsConn.Close()
		}
	}
}

func (a *App) toast(_ context.Context, n notify.Notification) error {
	_, err := fmt.Fprintf(a.errOut, "✗ %s\n", n.Message)
	return err
}
