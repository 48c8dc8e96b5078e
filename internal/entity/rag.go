package entity

// Chunk is a fragment of source text with its embedding. Chunks are created
// by the indexer and never modified afterwards.
type Chunk struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Source    string    `json:"source,omitempty"`
	Embedding []float32 `json:"embedding"`
}

type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// RetrievalResult is ordered by descending score.
type RetrievalResult struct {
	Items []ScoredChunk
}

func (r RetrievalResult) Texts() []string {
	texts := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		texts = append(texts, item.Chunk.Text)
	}
	return texts
}

func (r RetrievalResult) Len() int {
	return len(r.Items)
}
