package chat

import (
	"strings"

	"github.com/futig/rag-chat/internal/entity"
)

// Assemble joins chunk texts in result order, one per line.
func Assemble(result entity.RetrievalResult) string {
	return strings.Join(result.Texts(), "\n")
}
