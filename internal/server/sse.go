package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"finrag/internal/apperr"
	"finrag/internal/domain"
)

// sseSink frames stream events as server-sent events. Every event carries
// an `event:` name and a JSON `data:` payload.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSESink(w http.ResponseWriter) (*sseSink, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseSink{w: w, flusher: flusher}, true
}

func (s *sseSink) emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *sseSink) Metadata(mode domain.QueryMode, matching int, filters []string) error {
	return s.emit("metadata", map[string]any{
		"mode":                        mode,
		"matching_transactions_count": matching,
		"filters_applied":             filters,
	})
}

func (s *sseSink) Chunk(text string) error {
	return s.emit("chunk", map[string]string{"text": text})
}

func (s *sseSink) Final(stats *domain.Statistics, pg *domain.Pagination) error {
	return s.emit("metadata_final", map[string]any{
		"statistics": stats,
		"pagination": pg,
	})
}

func (s *sseSink) Done() error {
	return s.emit("done", map[string]any{})
}

func (s *sseSink) Error(kind apperr.Kind, message string) error {
	return s.emit("error", map[string]string{
		"error_kind": string(kind),
		"message":    message,
	})
}
