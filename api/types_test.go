package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "message only",
			req:  Request{Message: "best running shoes?"},
			want: `{"message":"best running shoes?"}`,
		},
		{
			name: "model included",
			req:  Request{Message: "hi", Model: "gpt-4o-mini"},
			want: `{"message":"hi","model":"gpt-4o-mini"}`,
		},
		{
			name: "extra fields merged",
			req: Request{
				Message: "hi",
				Extra:   map[string]any{"userId": "u1", "temperature": 0.2},
			},
			want: `{"message":"hi","temperature":0.2,"userId":"u1"}`,
		},
		{
			name: "message and model override extra",
			req: Request{
				Message: "hi",
				Model:   "m2",
				Extra:   map[string]any{"message": "shadowed", "model": "m1"},
			},
			want: `{"message":"hi","model":"m2"}`,
		},
		{
			name: "empty model drops extra model",
			req: Request{
				Message: "hi",
				Extra:   map[string]any{"model": "m1"},
			},
			want: `{"message":"hi"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.req)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestMetadata_NullBrand(t *testing.T) {
	var md Metadata
	require.NoError(t, json.Unmarshal([]byte(`{"brandUsed":null,"similarityScore":0.82,"matchedTriggers":["shoes"]}`), &md))
	assert.Nil(t, md.BrandUsed)
	require.NotNil(t, md.SimilarityScore)
	assert.InDelta(t, 0.82, *md.SimilarityScore, 1e-9)
	assert.Equal(t, []string{"shoes"}, md.MatchedTriggers)
}
