// Package reporting forwards server-side failures to Sentry when a DSN is
// configured. Without a DSN every call is a no-op.
package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"saavnrelay/internal/config"

	sentry "github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
)

// Reporter wraps the Sentry client
type Reporter struct {
	enabled bool
}

// Option adjusts the Sentry client options before Init
type Option func(*sentry.ClientOptions)

// WithTransport replaces the HTTP transport events are sent through
func WithTransport(transport sentry.Transport) Option {
	return func(o *sentry.ClientOptions) {
		o.Transport = transport
	}
}

// New initialises Sentry from cfg. A blank DSN yields a disabled reporter.
func New(cfg config.ReportingConfig, release string, opts ...Option) (*Reporter, error) {
	if cfg.SentryDSN == "" {
		return &Reporter{}, nil
	}

	clientOpts := sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		Release:          release,
		EnableTracing:    cfg.TracesSampleRate > 0,
		TracesSampleRate: cfg.TracesSampleRate,
	}
	for _, opt := range opts {
		opt(&clientOpts)
	}

	if err := sentry.Init(clientOpts); err != nil {
		return nil, fmt.Errorf("sentry.Init: %w", err)
	}
	return &Reporter{enabled: true}, nil
}

// Enabled reports whether events are sent
func (r *Reporter) Enabled() bool {
	return r != nil && r.enabled
}

// Middleware attaches a per-request hub so captures are scoped to the request
func (r *Reporter) Middleware(next http.Handler) http.Handler {
	if !r.Enabled() {
		return next
	}
	return sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(next)
}

// CaptureException reports err on the hub bound to ctx, falling back to the
// current hub
func (r *Reporter) CaptureException(ctx context.Context, err error, tags map[string]string) {
	if !r.Enabled() || err == nil {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

// Flush waits for buffered events to be sent
func (r *Reporter) Flush(timeout time.Duration) {
	if !r.Enabled() {
		return
	}
	sentry.Flush(timeout)
}
