package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/filedock/filedock"
	"github.com/filedock/filedock/filesystem"
)

type UploadService interface {
	Reserve(ctx context.Context, caller filedock.Caller, req filedock.ReserveRequest) (filedock.Reservation, error)
	Confirm(ctx context.Context, caller filedock.Caller, req filedock.ConfirmRequest) (filedock.FileRecord, error)
}

type FileService interface {
	List(ctx context.Context, caller filedock.Caller, q filedock.ListQuery) (filedock.ListResult, error)
	Download(ctx context.Context, caller filedock.Caller, fileID uuid.UUID) (filedock.DownloadResult, error)
	Rename(ctx context.Context, caller filedock.Caller, fileID uuid.UUID, newName string, newFolder *string) (filedock.FileRecord, error)
	Delete(ctx context.Context, caller filedock.Caller, fileID uuid.UUID) error
}

type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type HandlerConfig struct {
	CORS CORSConfig
	// BlobVerifier authenticates presigned requests on /blob/*. Required
	// when Blobs is set.
	BlobVerifier *filedock.SignatureVerifier
	// Blobs serves object bytes directly when the local storage backend is
	// in use. Nil when an external object store holds the bytes.
	Blobs *filesystem.Store
}

// Handler provides HTTP handlers for file metadata and upload operations.
type Handler struct {
	config  HandlerConfig
	uploads UploadService
	files   FileService
}

// NewHandler creates a new Handler with the given configuration and services.
func NewHandler(config *HandlerConfig, uploads UploadService, files FileService) *Handler {
	return &Handler{
		config:  *config,
		uploads: uploads,
		files:   files,
	}
}

// Router returns an http.Handler with all routes configured. File routes
// require a caller identity; /blob/* routes are authenticated by signed
// URLs instead.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/healthz", h.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(IdentityMiddleware)
		r.Post("/files/upload", h.handleReserve)
		r.Post("/files/confirm", h.handleConfirm)
		r.Get("/files", h.handleList)
		r.Get("/files/{fileID}", h.handleDownload)
		r.Put("/files/{fileID}", h.handleRename)
		r.Delete("/files/{fileID}", h.handleDelete)
	})

	if h.config.Blobs != nil {
		r.Group(func(r chi.Router) {
			r.Use(SignatureMiddleware(h.config.BlobVerifier))
			r.Put("/blob/*", h.handleBlobPut)
			r.Get("/blob/*", h.handleBlobGet)
		})
	}

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReserve(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Missing caller identity")
		return
	}

	var req filedock.ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid request body")
		return
	}

	reservation, err := h.uploads.Reserve(r.Context(), caller, req)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, reservation)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Missing caller identity")
		return
	}

	var req filedock.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid request body")
		return
	}

	record, err := h.uploads.Confirm(r.Context(), caller, req)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Missing caller identity")
		return
	}

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = max(1, min(1000, parsed))
		}
	}

	query := filedock.ListQuery{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	}
	if r.URL.Query().Has("folder") {
		folder := r.URL.Query().Get("folder")
		if !filedock.IsValidFolder(folder) {
			WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid folder")
			return
		}
		query.Folder = &folder
	}

	result, err := h.files.List(r.Context(), caller, query)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Missing caller identity")
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid file id")
		return
	}

	result, err := h.files.Download(r.Context(), caller, fileID)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

type renameRequest struct {
	FileName string  `json:"file_name"`
	Folder   *string `json:"folder"`
}

func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Missing caller identity")
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid file id")
		return
	}

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid request body")
		return
	}

	record, err := h.files.Rename(r.Context(), caller, fileID, req.FileName, req.Folder)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Missing caller identity")
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid file id")
		return
	}

	if err := h.files.Delete(r.Context(), caller, fileID); err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type blobWriteResponse struct {
	Etag          string `json:"etag"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

func blobKey(r *http.Request) string {
	return strings.TrimPrefix(r.URL.Path, "/blob/")
}

func (h *Handler) handleBlobPut(w http.ResponseWriter, r *http.Request) {
	key := blobKey(r)
	if key == "" || strings.Contains(key, "..") {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid blob key")
		return
	}

	result, err := h.config.Blobs.Write(r.Context(), key, r.Body)
	if err != nil {
		HandleError(w, err)
		return
	}

	w.Header().Set("ETag", `"`+result.Etag+`"`)
	_ = WriteJSON(w, http.StatusOK, blobWriteResponse{
		Etag:          result.Etag,
		FileSizeBytes: result.BytesWritten,
	})
}

func (h *Handler) handleBlobGet(w http.ResponseWriter, r *http.Request) {
	key := blobKey(r)
	if key == "" || strings.Contains(key, "..") {
		WriteError(w, http.StatusBadRequest, "invalid_input", "Invalid blob key")
		return
	}

	content, err := h.config.Blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, filedock.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "Blob not found")
		} else {
			HandleError(w, err)
		}
		return
	}
	defer func() { _ = content.Close() }()

	info, err := h.config.Blobs.Stat(r.Context(), key)
	if err != nil {
		HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, "", info.ModTime(), content)
}
