package dispatch

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/i2y/brandlink/api"
)

// Target names a display target either by registry identifier (glob
// patterns allowed) or by direct handle.
type Target struct {
	ID   string
	Sink Sink
}

// ID targets the sinks registered under pattern.
func ID(pattern string) Target {
	return Target{ID: pattern}
}

// Handle targets sink directly.
func Handle(sink Sink) Target {
	return Target{Sink: sink}
}

// Registrar records impressions. api.Transport satisfies it.
type Registrar interface {
	RegisterImpression(ctx context.Context, imp *api.Impression) error
}

// Dispatcher fans answer updates out to sinks and registers impressions.
type Dispatcher struct {
	registrar  Registrar
	registry   *Registry
	logger     *slog.Logger
	maxRetries uint64
	interval   time.Duration
	onError    func(*api.Impression, error)

	wg sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRegistry sets the registry used to resolve target identifiers.
func WithRegistry(r *Registry) Option {
	return func(d *Dispatcher) {
		d.registry = r
	}
}

// WithLogger sets the logger used for impression failures.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithRetry retries failed impressions up to maxRetries times with
// exponential backoff starting at initial. Only network, timeout and server
// failures are retried.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(d *Dispatcher) {
		d.maxRetries = maxRetries
		d.interval = initial
	}
}

// WithErrorHandler is called with the final error of every failed
// background impression.
func WithErrorHandler(fn func(*api.Impression, error)) Option {
	return func(d *Dispatcher) {
		d.onError = fn
	}
}

// New creates a Dispatcher. registrar may be nil, which disables impression
// registration.
func New(registrar Registrar, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registrar: registrar,
		registry:  NewRegistry(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		interval:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry used to resolve identifiers.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Resolve turns targets into sinks. Unknown identifiers resolve to nothing;
// a sink reached through several targets appears once.
func (d *Dispatcher) Resolve(targets ...Target) []Sink {
	var sinks []Sink
	seen := make(map[Sink]struct{})
	add := func(s Sink) {
		if reflect.TypeOf(s).Comparable() {
			if _, dup := seen[s]; dup {
				return
			}
			seen[s] = struct{}{}
		}
		sinks = append(sinks, s)
	}

	for _, t := range targets {
		if t.Sink != nil {
			add(t.Sink)
			continue
		}
		matched := d.registry.Match(t.ID)
		if len(matched) == 0 {
			d.logger.Debug("display target not found", "target", t.ID)
		}
		for _, s := range matched {
			add(s)
		}
	}
	return sinks
}

// Update shows text on every sink.
func (d *Dispatcher) Update(sinks []Sink, text string) {
	for _, s := range sinks {
		s.SetText(text)
	}
}

// Finish applies the terminal metadata: the link goes to every sink and,
// when track is set and both text and tracking code are present, an
// impression is registered in the background.
func (d *Dispatcher) Finish(ctx context.Context, sinks []Sink, text string, md *api.Metadata, track bool) {
	if md == nil {
		return
	}
	if md.Link != "" {
		for _, s := range sinks {
			s.SetLink(md.Link)
		}
	}
	if track && text != "" && md.Code != "" {
		d.Track(ctx, &api.Impression{Code: md.Code, Response: text, Link: md.Link})
	}
}

// Track registers imp in the background. The registration outlives ctx's
// cancellation but keeps its values. Failures go to the error handler.
func (d *Dispatcher) Track(ctx context.Context, imp *api.Impression) {
	if d.registrar == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.Register(ctx, imp); err != nil {
			d.logger.Warn("impression registration failed", "code", imp.Code, "error", err)
			if d.onError != nil {
				d.onError(imp, err)
			}
		}
	}()
}

// Register records imp synchronously, retrying as configured.
func (d *Dispatcher) Register(ctx context.Context, imp *api.Impression) error {
	if d.registrar == nil {
		return nil
	}
	if imp.Code == "" || imp.Response == "" {
		return api.Validation("impression requires both code and response text")
	}

	op := func() error {
		err := d.registrar.RegisterImpression(ctx, imp)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	if d.maxRetries == 0 {
		return d.registrar.RegisterImpression(ctx, imp)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.interval
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, d.maxRetries), ctx))
}

// Wait blocks until all background impressions have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func retryable(err error) bool {
	return api.IsKind(err, api.KindNetwork) ||
		api.IsKind(err, api.KindTimeout) ||
		api.IsKind(err, api.KindServer)
}
