package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

type documentList struct {
	Documents []domain.Document `json:"documents"`
	Total     int               `json:"total"`
}

// ListDocuments returns every document, newest first.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, documentList{Documents: docs, Total: len(docs)})
}

// UploadDocument accepts a multipart file in the "file" field and starts
// ingestion. The response is the pending document record.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeError(w, fmt.Errorf("%w: limit is %d bytes", domain.ErrTooLarge, h.cfg.MaxUploadBytes))
			return
		}
		writeError(w, fmt.Errorf("%w: %w", domain.ErrValidation, err))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: no file provided", domain.ErrValidation))
		return
	}
	defer file.Close() //nolint:errcheck

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, fmt.Errorf("read upload: %w", err))
		return
	}

	doc, err := h.documents.Upload(r.Context(), header.Filename, content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// AddURL accepts a web page URL as a form field or JSON body.
func (h *Handler) AddURL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var rawURL string
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, fmt.Errorf("%w: invalid request body: %w", domain.ErrValidation, err))
			return
		}
		rawURL = body.URL
	} else {
		rawURL = r.FormValue("url")
	}

	if strings.TrimSpace(rawURL) == "" {
		writeMessage(w, http.StatusBadRequest, "url is required")
		return
	}

	doc, err := h.documents.AddURL(r.Context(), rawURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetDocument returns one document.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documents.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument removes a document and its chunks.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.documents.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// DocumentStats summarises stored documents.
func (h *Handler) DocumentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.documents.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// DocumentEvents streams status changes of one document until ingestion
// finishes. The current status is always sent first.
func (h *Handler) DocumentEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	events, release := h.documents.Subscribe(id)
	if events == nil {
		writeMessage(w, http.StatusNotImplemented, "status notifications are not enabled")
		return
	}
	defer release()

	doc, err := h.documents.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	sse := newSSEWriter(w)
	if err := sse.Event("status", statusEvent(doc)); err != nil || doc.Status.IsTerminal() {
		return
	}

	heartbeat := time.NewTicker(h.cfg.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if err := sse.Comment("ping"); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := sse.Event("status", ev); err != nil || ev.Status.IsTerminal() {
				return
			}
		}
	}
}

func statusEvent(doc *domain.Document) domain.StatusEvent {
	return domain.StatusEvent{
		DocumentID: doc.ID,
		Status:     doc.Status,
		ChunkCount: doc.ChunkCount,
		Error:      doc.Error,
		Timestamp:  doc.UpdatedAt,
	}
}
