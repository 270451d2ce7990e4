package documenthandler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leavelite/internal/platform/docstore"
	"leavelite/internal/transport/http/api"
	"leavelite/internal/transport/http/middleware"
)

// multipartOverhead covers boundaries and part headers on top of the file itself.
const multipartOverhead = 64 * 1024

type Store interface {
	UploadConfig() (docstore.UploadConfig, error)
	Upload(ctx context.Context, upload docstore.Upload) (docstore.Document, error)
}

type Handler struct {
	Store    Store
	MaxBytes int64
}

func NewHandler(store Store, maxBytes int64) *Handler {
	return &Handler{Store: store, MaxBytes: maxBytes}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/documents", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/upload-config", h.handleUploadConfig)
		r.Post("/", h.handleUpload)
	})
}

func (h *Handler) handleUploadConfig(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	cfg, err := h.Store.UploadConfig()
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Success(w, cfg, requestID)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	limit := h.MaxBytes + multipartOverhead

	if r.ContentLength > limit {
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
			return
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "multipart field \"file\" is required", requestID)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.MaxBytes+1))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", fmt.Sprintf("read file: %v", err), requestID)
		return
	}

	doc, err := h.Store.Upload(r.Context(), docstore.Upload{FileName: header.Filename, Data: data})
	if err != nil {
		api.FailError(w, err, requestID)
		return
	}
	api.Created(w, doc, requestID)
}
