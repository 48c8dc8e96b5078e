package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const MockModel = "mock-hashing"

// MockConnector is a deterministic feature-hashing embedder: texts sharing
// words get similar vectors, so retrieval behaves sensibly without a model.
type MockConnector struct {
	dim int
}

func NewMockConnector(dim int) *MockConnector {
	return &MockConnector{dim: dim}
}

func (m *MockConnector) Model() string {
	return MockModel
}

func (m *MockConnector) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vector := make([]float32, m.dim)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()

		sign := float32(1)
		if sum&(1<<31) != 0 {
			sign = -1
		}
		vector[int(sum%uint32(m.dim))] += sign
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vector, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vector {
		vector[i] *= scale
	}
	return vector, nil
}

// tokenize lowercases words; Han characters become single-rune tokens.
func tokenize(text string) []string {
	var (
		tokens []string
		word   strings.Builder
	)
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}
