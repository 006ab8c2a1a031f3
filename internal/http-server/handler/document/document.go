package document

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"doc-converter/internal/domain"
	"doc-converter/internal/http-server/handler/document/dto"
	document_uc "doc-converter/internal/usecase/document"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/zlog"
)

const (
	maxMemory    = 32 << 20
	defaultLimit = 50
)

type DocumentHandler struct {
	usecase  documentUsecase
	validate *validator.Validate
	logger   *zlog.Zerolog
}

func NewDocumentHandler(usecase documentUsecase, logger *zlog.Zerolog) *DocumentHandler {
	return &DocumentHandler{
		usecase:  usecase,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, domain.DefaultMaxUploadSize)

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to parse multipart form")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "File too large", nil)
			return
		}
		h.respondError(w, http.StatusBadRequest, "Invalid request format", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.logger.Warn().Err(err).Msg("File not found in request")
		h.respondError(w, http.StatusBadRequest, "File is required", ErrFileRequired)
		return
	}
	defer file.Close()

	up, err := h.usecase.Upload(ctx, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		h.handleUploadError(w, err, header.Filename)
		return
	}

	h.respondJSON(w, http.StatusAccepted, dto.UploadResponse{
		Key:    up.Key,
		Name:   up.Name,
		TaskID: up.TaskID,
	})
}

func (h *DocumentHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	runID, err := h.usecase.TriggerRun(r.Context())
	if err != nil {
		if errors.Is(err, document_uc.ErrRunInProgress) {
			h.respondError(w, http.StatusConflict, "A run is already in progress", nil)
			return
		}
		h.logger.Error().Err(err).Msg("Failed to start run")
		h.respondError(w, http.StatusInternalServerError, "Failed to start run", err)
		return
	}

	h.logger.Info().Str("run_id", runID).Msg("Run triggered")
	h.respondJSON(w, http.StatusAccepted, dto.RunResponse{RunID: runID})
}

func (h *DocumentHandler) SignedURL(w http.ResponseWriter, r *http.Request) {
	req := dto.SignedURLRequest{Name: chi.URLParam(r, "name")}

	if raw := r.URL.Query().Get("expiry_minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "expiry_minutes must be an integer", nil)
			return
		}
		req.ExpiryMinutes = minutes
	}

	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid parameters", err)
		return
	}

	expiry := time.Duration(req.ExpiryMinutes) * time.Minute
	if expiry == 0 {
		expiry = domain.DefaultSignedURLExpiry
	}

	url, err := h.usecase.SignedURL(r.Context(), req.Name, expiry)
	if err != nil {
		switch {
		case errors.Is(err, document_uc.ErrDocumentNotFound):
			h.respondError(w, http.StatusNotFound, "Converted document not found", nil)
		case errors.Is(err, document_uc.ErrInvalidFileName):
			h.respondError(w, http.StatusBadRequest, "Invalid document name", nil)
		default:
			h.logger.Error().Err(err).Str("name", req.Name).Msg("Failed to sign url")
			h.respondError(w, http.StatusInternalServerError, "Failed to sign url", err)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, dto.SignedURLResponse{
		URL:       url,
		ExpiresAt: time.Now().Add(expiry).UTC(),
	})
}

func (h *DocumentHandler) ListConversions(w http.ResponseWriter, r *http.Request) {
	req := dto.ListConversionsRequest{Limit: defaultLimit}

	q := r.URL.Query()
	for name, dst := range map[string]*int{"limit": &req.Limit, "offset": &req.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, name+" must be an integer", nil)
			return
		}
		*dst = v
	}

	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid parameters", err)
		return
	}

	records, total, err := h.usecase.ListConversions(r.Context(), req.Limit, req.Offset)
	if err != nil {
		if errors.Is(err, document_uc.ErrLedgerDisabled) {
			h.respondError(w, http.StatusNotImplemented, "Conversion ledger is disabled", nil)
			return
		}
		h.logger.Error().Err(err).Msg("Failed to list conversions")
		h.respondError(w, http.StatusInternalServerError, "Failed to list conversions", err)
		return
	}

	resp := dto.ConversionsResponse{
		Items:  make([]dto.ConversionResponse, 0, len(records)),
		Total:  total,
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	for _, rec := range records {
		resp.Items = append(resp.Items, dto.ConversionResponse{
			ID:             rec.ID,
			RunID:          rec.RunID,
			SourceKey:      rec.SourceKey,
			Class:          string(rec.Class),
			Status:         string(rec.Status),
			Reason:         rec.Reason,
			DestinationKey: rec.DestinationKey,
			CreatedAt:      rec.CreatedAt,
		})
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *DocumentHandler) handleUploadError(w http.ResponseWriter, err error, filename string) {
	switch {
	case errors.Is(err, document_uc.ErrUnsupportedFormat):
		h.logger.Warn().Str("filename", filename).Msg("Unsupported file format")
		h.respondError(w, http.StatusBadRequest, "Unsupported file format", nil)
	case errors.Is(err, document_uc.ErrInvalidFileName):
		h.logger.Warn().Str("filename", filename).Msg("Invalid file name")
		h.respondError(w, http.StatusBadRequest, "Invalid file name", nil)
	case errors.Is(err, document_uc.ErrFileTooLarge):
		h.logger.Warn().Str("filename", filename).Msg("File too large")
		h.respondError(w, http.StatusRequestEntityTooLarge, "File too large", nil)
	case errors.Is(err, document_uc.ErrMessageQueueError):
		h.respondError(w, http.StatusServiceUnavailable, "Failed to queue conversion", err)
	default:
		h.logger.Error().Err(err).Str("filename", filename).Msg("Upload failed")
		h.respondError(w, http.StatusInternalServerError, "Failed to upload file", err)
	}
}

func (h *DocumentHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *DocumentHandler) respondError(w http.ResponseWriter, status int, message string, err error) {
	response := dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}

	if err != nil {
		response.Details = err.Error()
	}

	h.respondJSON(w, status, response)
}
