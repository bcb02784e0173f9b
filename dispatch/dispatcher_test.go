package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/brandlink/api"
)

// mockRegistrar records impressions and fails with the queued errors first.
type mockRegistrar struct {
	mu    sync.Mutex
	calls []api.Impression
	errs  []error
}

func (m *mockRegistrar) RegisterImpression(_ context.Context, imp *api.Impression) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, *imp)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return err
	}
	return nil
}

func (m *mockRegistrar) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func TestDispatcher_Resolve(t *testing.T) {
	d := New(nil)
	byID := &MemorySink{}
	direct := &MemorySink{}
	direct.SetText("direct")
	d.Registry().Add("answer", byID)

	sinks := d.Resolve(ID("answer"), Handle(direct), ID("missing"), ID("answer"))
	assert.Equal(t, []Sink{byID, direct}, sinks)
	assert.Empty(t, d.Resolve())
}

func TestDispatcher_UpdateAndFinish(t *testing.T) {
	reg := &mockRegistrar{}
	d := New(reg)
	a, b := &MemorySink{}, &MemorySink{}
	sinks := []Sink{a, b}

	d.Update(sinks, "Try Acme")
	d.Finish(context.Background(), sinks, "Try Acme", &api.Metadata{Link: "https://acme.com/r", Code: "c-1"}, true)
	d.Wait()

	for _, s := range []*MemorySink{a, b} {
		assert.Equal(t, "Try Acme", s.Text())
		assert.Equal(t, "https://acme.com/r", s.Link())
	}
	require.Equal(t, 1, reg.count())
	assert.Equal(t, api.Impression{Code: "c-1", Response: "Try Acme", Link: "https://acme.com/r"}, reg.calls[0])
}

func TestDispatcher_FinishSkipsImpression(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		md    *api.Metadata
		track bool
	}{
		{"no metadata", "text", nil, true},
		{"no code", "text", &api.Metadata{Link: "https://x.test"}, true},
		{"no text", "", &api.Metadata{Code: "c"}, true},
		{"tracking disabled", "text", &api.Metadata{Code: "c"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &mockRegistrar{}
			d := New(reg)
			d.Finish(context.Background(), nil, tt.text, tt.md, tt.track)
			d.Wait()
			assert.Zero(t, reg.count())
		})
	}
}

func TestDispatcher_TrackOutlivesCancelledContext(t *testing.T) {
	reg := &mockRegistrar{}
	d := New(reg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Track(ctx, &api.Impression{Code: "c", Response: "r"})
	d.Wait()

	assert.Equal(t, 1, reg.count())
}

func TestDispatcher_TrackReportsErrors(t *testing.T) {
	failure := &api.Error{Kind: api.KindAuthentication, StatusCode: 401}
	reg := &mockRegistrar{errs: []error{failure}}

	var gotErr error
	d := New(reg, WithErrorHandler(func(_ *api.Impression, err error) {
		gotErr = err
	}))
	d.Track(context.Background(), &api.Impression{Code: "c", Response: "r"})
	d.Wait()

	assert.True(t, api.IsKind(gotErr, api.KindAuthentication))
}

func TestDispatcher_RegisterRetries(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantKind  api.Kind
	}{
		{
			name:      "succeeds after transient failures",
			errs:      []error{&api.Error{Kind: api.KindNetwork}, &api.Error{Kind: api.KindServer, StatusCode: 500}},
			wantCalls: 3,
		},
		{
			name:      "does not retry authentication failures",
			errs:      []error{&api.Error{Kind: api.KindAuthentication, StatusCode: 401}},
			wantCalls: 1,
			wantKind:  api.KindAuthentication,
		},
		{
			name: "gives up after max retries",
			errs: []error{
				&api.Error{Kind: api.KindTimeout},
				&api.Error{Kind: api.KindTimeout},
				&api.Error{Kind: api.KindTimeout},
				&api.Error{Kind: api.KindTimeout},
			},
			wantCalls: 3,
			wantKind:  api.KindTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &mockRegistrar{errs: tt.errs}
			d := New(reg, WithRetry(2, time.Millisecond))

			err := d.Register(context.Background(), &api.Impression{Code: "c", Response: "r"})
			assert.Equal(t, tt.wantCalls, reg.count())
			if tt.wantKind == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, api.IsKind(err, tt.wantKind), "got %v", err)
		})
	}
}

func TestDispatcher_RegisterValidation(t *testing.T) {
	d := New(&mockRegistrar{})
	err := d.Register(context.Background(), &api.Impression{Code: "c"})
	assert.True(t, api.IsKind(err, api.KindValidation))
}

func TestDispatcher_NilRegistrar(t *testing.T) {
	d := New(nil)
	assert.NoError(t, d.Register(context.Background(), &api.Impression{Code: "c", Response: "r"}))
	d.Track(context.Background(), &api.Impression{Code: "c", Response: "r"})
	d.Wait()
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(&api.Error{Kind: api.KindNetwork}))
	assert.True(t, retryable(&api.Error{Kind: api.KindTimeout}))
	assert.True(t, retryable(&api.Error{Kind: api.KindServer}))
	assert.False(t, retryable(&api.Error{Kind: api.KindValidation}))
	assert.False(t, retryable(errors.New("plain")))
}
