package models

import "fmt"

// AskRequest represents a natural-language question over the candidate pool.
type AskRequest struct {
	Query string `json:"query"`
	// Limit is the maximum number of chunks retrieved for context.
	Limit int `json:"limit,omitempty"`
	// SkipCache bypasses the semantic answer cache for this request.
	SkipCache bool `json:"skip_cache,omitempty"`
}

// Validate ensures the request has valid fields and sets defaults.
// Returns an error if the query is empty; otherwise normalizes the limit.
func (r *AskRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if r.Limit <= 0 {
		r.Limit = 15
	}
	if r.Limit > 100 {
		r.Limit = 100
	}
	return nil
}
