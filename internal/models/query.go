package models

import "errors"

// ErrEmptyQuestion is returned by Validate when the question is blank.
var ErrEmptyQuestion = errors.New("question cannot be empty")

// QueryRequest represents a question against the indexed documents.
type QueryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// Validate ensures the request has valid fields and sets defaults.
// Returns an error if the question is empty; otherwise normalizes top_k.
func (q *QueryRequest) Validate(defaultTopK int) error {
	if q.Question == "" {
		return ErrEmptyQuestion
	}
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if q.TopK > 50 {
		q.TopK = 50
	}
	return nil
}
