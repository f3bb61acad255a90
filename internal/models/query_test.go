package models

import (
	"testing"
)

func TestQueryRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   *QueryRequest
		wantErr bool
		wantK   int
	}{
		{"empty question", &QueryRequest{Question: ""}, true, 0},
		{"valid question", &QueryRequest{Question: "hello"}, false, 4},
		{"sets default top_k", &QueryRequest{Question: "x", TopK: 0}, false, 4},
		{"keeps explicit top_k", &QueryRequest{Question: "x", TopK: 7}, false, 7},
		{"caps top_k at 50", &QueryRequest{Question: "x", TopK: 200}, false, 50},
		{"negative top_k uses default", &QueryRequest{Question: "x", TopK: -3}, false, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate(4)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.query.TopK != tt.wantK {
				t.Errorf("expected top_k %d, got %d", tt.wantK, tt.query.TopK)
			}
		})
	}
}
