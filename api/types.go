package api

import (
	"encoding/json"
	"maps"
)

// Request is a single question sent to the answer service.
type Request struct {
	Message string
	Model   string

	// Extra holds caller-supplied fields merged into the request body.
	// Message and Model always win over keys of the same name.
	Extra map[string]any
}

// MarshalJSON flattens Extra into the top-level object.
func (r Request) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, len(r.Extra)+2)
	maps.Copy(body, r.Extra)
	body["message"] = r.Message
	if r.Model != "" {
		body["model"] = r.Model
	} else {
		delete(body, "model")
	}
	return json.Marshal(body)
}

// Response is the body returned by the non-streaming answer endpoint.
type Response struct {
	Response string   `json:"response"`
	Metadata Metadata `json:"metadata"`
}

// Metadata is the trailing JSON object describing brand placement.
type Metadata struct {
	BrandUsed       *Brand   `json:"brandUsed" jsonschema:"description=Brand placed in the answer or null"`
	Link            string   `json:"link,omitempty" jsonschema:"description=Affiliate link for the brand"`
	Code            string   `json:"code,omitempty" jsonschema:"description=Tracking code used for impression registration"`
	SimilarityScore *float64 `json:"similarityScore,omitempty"`
	TriggerPhrases  []string `json:"triggerPhrases,omitempty"`
	MatchedTriggers []string `json:"matchedTriggers,omitempty"`
}

// Brand identifies the advertiser chosen for an answer.
type Brand struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// Impression registers that an answer carrying a tracking code was shown.
type Impression struct {
	Code     string `json:"code"`
	Response string `json:"response"`
	Link     string `json:"link,omitempty"`
}
