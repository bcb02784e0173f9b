package hosted

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/brandlink/api"
)

func newTestTransport(t *testing.T, handler http.HandlerFunc, opts ...Option) *Transport {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithAPIKey("test-key"), WithBaseURL(srv.URL)}, opts...)
	tr, err := New(opts...)
	require.NoError(t, err)
	return tr
}

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Setenv("BRANDLINK_API_KEY", "")

	_, err := New()
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindValidation))
}

func TestNew_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv("BRANDLINK_API_KEY", "env-key")

	tr, err := New()
	require.NoError(t, err)
	assert.Equal(t, "env-key", tr.client.apiKey)
	assert.Equal(t, defaultBaseURL, tr.client.baseURL)
	assert.Equal(t, defaultTimeout, tr.client.timeout)
}

func TestRegisteredInRegistry(t *testing.T) {
	assert.True(t, api.IsRegistered(Name))
}

func TestRegistryFactoryAppliesSettings(t *testing.T) {
	t.Setenv("BRANDLINK_API_KEY", "")
	hc := &http.Client{}

	tr, err := api.Get(Name, api.Settings{
		APIKey:     "from-settings",
		BaseURL:    "https://answers.test/v1",
		Timeout:    7 * time.Second,
		HTTPClient: hc,
	})
	require.NoError(t, err)

	ht, ok := tr.(*Transport)
	require.True(t, ok)
	assert.Equal(t, "from-settings", ht.client.apiKey)
	assert.Equal(t, "https://answers.test/v1", ht.client.baseURL)
	assert.Equal(t, 7*time.Second, ht.client.timeout)
	assert.Same(t, hc, ht.client.poster.HTTPClient)
}

func TestRegistryFactoryMissingKey(t *testing.T) {
	t.Setenv("BRANDLINK_API_KEY", "")

	tr, err := api.Get(Name, api.Settings{})
	require.Error(t, err)
	assert.Nil(t, tr)
	assert.True(t, api.IsKind(err, api.KindValidation))
}

func TestAnswer(t *testing.T) {
	var gotBody map[string]any
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/answer", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Contains(t, r.Header.Get("User-Agent"), "brandlink-go/")

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"response":"Try Acme shoes.","metadata":{"brandUsed":{"id":"b1","name":"Acme","domain":"acme.com"},"link":"https://acme.com/r/1","code":"c-1"}}`)
	})

	resp, err := tr.Answer(context.Background(), &api.Request{
		Message: "best running shoes?",
		Model:   "gpt-4o-mini",
		Extra:   map[string]any{"userId": "u-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Try Acme shoes.", resp.Response)
	require.NotNil(t, resp.Metadata.BrandUsed)
	assert.Equal(t, "Acme", resp.Metadata.BrandUsed.Name)
	assert.Equal(t, "c-1", resp.Metadata.Code)

	assert.Equal(t, map[string]any{
		"message": "best running shoes?",
		"model":   "gpt-4o-mini",
		"userId":  "u-1",
	}, gotBody)
}

func TestAnswer_StatusClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantKind    api.Kind
		wantMessage string
	}{
		{"bad request", http.StatusBadRequest, `{"error":"message is required"}`, api.KindValidation, "message is required"},
		{"unauthorized", http.StatusUnauthorized, `{"error":"invalid key"}`, api.KindAuthentication, "invalid key"},
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`, api.KindServer, "boom"},
		{"forbidden", http.StatusForbidden, `not json`, api.KindAPI, "Forbidden"},
		{"rate limited", http.StatusTooManyRequests, ``, api.KindAPI, "Too Many Requests"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Request-ID", "srv-req-1")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := tr.Answer(context.Background(), &api.Request{Message: "hi"})
			require.Error(t, err)

			e, ok := api.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.Equal(t, tt.status, e.StatusCode)
			assert.Equal(t, tt.wantMessage, e.Message)
			assert.Equal(t, "srv-req-1", e.RequestID)
		})
	}
}

func TestAnswer_Timeout(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, WithTimeout(time.Millisecond))

	_, err := tr.Answer(context.Background(), &api.Request{Message: "hi"})
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindTimeout), "got %v", err)
	assert.False(t, api.IsKind(err, api.KindNetwork))
}

func TestAnswerStream_TimeoutBeforeHeaders(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, WithTimeout(time.Millisecond))

	_, err := tr.AnswerStream(context.Background(), &api.Request{Message: "hi"})
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindTimeout), "got %v", err)
}

func TestAnswer_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	tr, err := New(WithAPIKey("k"), WithBaseURL(baseURL))
	require.NoError(t, err)

	_, err = tr.Answer(context.Background(), &api.Request{Message: "hi"})
	require.Error(t, err)

	e, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, api.KindNetwork, e.Kind)
	assert.NotEmpty(t, e.RequestID)
}

func TestAnswer_MalformedBody(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"response":`)
	})

	_, err := tr.Answer(context.Background(), &api.Request{Message: "hi"})
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindAPI))
}

func TestAnswerStream(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/answer/stream", r.URL.Path)
		assert.Equal(t, "text/plain", r.Header.Get("Accept"))

		flusher := w.(http.Flusher)
		for _, chunk := range []string{"Hello ", "world\n", "\n{\"brandUsed\":null}"} {
			_, _ = io.WriteString(w, chunk)
			flusher.Flush()
		}
	}, WithTimeout(50*time.Millisecond))

	body, err := tr.AnswerStream(context.Background(), &api.Request{Message: "hi"})
	require.NoError(t, err)

	// Time spent between reads does not count against the timeout.
	time.Sleep(100 * time.Millisecond)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())

	assert.Equal(t, "Hello world\n\n{\"brandUsed\":null}", string(data))
}

func TestAnswerStream_ErrorStatus(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"bad key"}`)
	})

	_, err := tr.AnswerStream(context.Background(), &api.Request{Message: "hi"})
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindAuthentication))
}

func TestAnswerStream_CallerDeadlineDuringBody(t *testing.T) {
	release := make(chan struct{})
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "partial ")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	body, err := tr.AnswerStream(ctx, &api.Request{Message: "hi"})
	require.NoError(t, err)
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	assert.Equal(t, "partial ", string(data))
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindTimeout), "got %v", err)
}

func TestAnswerStream_StallAfterHeadersTimesOut(t *testing.T) {
	release := make(chan struct{})
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "Hello")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}, WithTimeout(50*time.Millisecond))
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	body, err := tr.AnswerStream(ctx, &api.Request{Message: "hi"})
	require.NoError(t, err)
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, "Hello", string(data))
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindTimeout), "got %v", err)
	assert.NoError(t, ctx.Err(), "the caller deadline must not be what ended the read")
}

func TestRegisterImpression(t *testing.T) {
	var got api.Impression
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/impression", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})

	err := tr.RegisterImpression(context.Background(), &api.Impression{
		Code:     "c-1",
		Response: "Try Acme.",
		Link:     "https://acme.com/r/1",
	})
	require.NoError(t, err)
	assert.Equal(t, api.Impression{Code: "c-1", Response: "Try Acme.", Link: "https://acme.com/r/1"}, got)
}

func TestRegisterImpression_ServerError(t *testing.T) {
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := tr.RegisterImpression(context.Background(), &api.Impression{Code: "c", Response: "r"})
	assert.True(t, api.IsKind(err, api.KindServer))
}
