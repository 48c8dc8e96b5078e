package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/futig/rag-chat/internal/entity"
)

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		// headers are already sent, nothing useful can be reported on failure
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes an error response
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, entity.ErrorResponse{Error: code, Message: message})
}

// Success writes a success response
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Attachment writes a rendered transcript as a file download
func Attachment(w http.ResponseWriter, t *entity.Transcript) {
	w.Header().Set("Content-Type", t.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", t.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(t.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(t.Data)
}
