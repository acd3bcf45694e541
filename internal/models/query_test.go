package models

import (
	"testing"
)

func TestAskRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     *AskRequest
		wantErr bool
	}{
		{"empty query", &AskRequest{Query: ""}, true},
		{"valid query", &AskRequest{Query: "who knows Go"}, false},
		{"sets default limit", &AskRequest{Query: "x", Limit: 0}, false},
		{"caps limit at 100", &AskRequest{Query: "x", Limit: 500}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if tt.req.Limit == 0 {
					t.Error("expected default limit to be set")
				}
				if tt.req.Limit > 100 {
					t.Errorf("expected limit capped at 100, got %d", tt.req.Limit)
				}
			}
		})
	}
}
