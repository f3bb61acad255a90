package models

// RetrievedChunk is a single retrieval hit backing an answer.
type RetrievedChunk struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"doc_id"`
	Source     string  `json:"source"`
	Score      float32 `json:"score"`
	Text       string  `json:"text"`
}

// QueryResponse is the response for a question: the generated answer plus
// the chunks it was grounded on.
type QueryResponse struct {
	Question        string            `json:"question"`
	Answer          string            `json:"answer"`
	RetrievedChunks int               `json:"retrieved_chunks"`
	Results         []*RetrievedChunk `json:"results"`
	QueryTime       int64             `json:"query_time_ms"`
}
