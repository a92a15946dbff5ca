package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Bahjat/linkboard/internal/model"
	"github.com/Bahjat/linkboard/internal/platform/errs"
)

const (
	defaultAnalyzeTimeout = 60 * time.Second
	maxRequestBody        = 1 << 20 // 1 MB
)

var errURLRequired = errors.New("the \"url\" field is required")

// Transport handles HTTP requests for the link records and page analysis.
type Transport struct {
	service        *Service
	logger         *slog.Logger
	analyzeTimeout time.Duration
}

// NewTransport creates an HTTP transport backed by the given service. A zero
// analyzeTimeout uses 60s.
func NewTransport(service *Service, analyzeTimeout time.Duration, logger *slog.Logger) *Transport {
	if analyzeTimeout <= 0 {
		analyzeTimeout = defaultAnalyzeTimeout
	}
	return &Transport{service: service, logger: logger, analyzeTimeout: analyzeTimeout}
}

// RegisterRoutes attaches the transport's handlers to the given router.
func (t *Transport) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", t.handleHealth)
	r.Get("/links", t.handleList)
	r.Post("/links", t.handleSubmit)
	r.Put("/links", t.handleUpdate)
	r.Post("/analyze", t.handleAnalyze)
}

type analyzeRequest struct {
	URL string `json:"url"`
}

func (r analyzeRequest) validate() error {
	if r.URL == "" {
		return errURLRequired
	}
	return nil
}

type submitResponse struct {
	Status string       `json:"status"`
	Links  []model.Link `json:"links"`
}

type updateResponse struct {
	Message string       `json:"message"`
	ID      int          `json:"id"`
	Status  model.Status `json:"status"`
}

func (t *Transport) handleHealth(w http.ResponseWriter, _ *http.Request) {
	t.renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (t *Transport) handleList(w http.ResponseWriter, r *http.Request) {
	page, ok := queryInt(r, "page", 1)
	if !ok {
		t.renderError(w, http.StatusBadRequest, "Invalid page parameter")
		return
	}
	amount, ok := queryInt(r, "amount", DefaultPageSize)
	if !ok {
		t.renderError(w, http.StatusBadRequest, "Invalid amount parameter")
		return
	}

	result, err := t.service.List(r.Context(), page, amount)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}
	t.renderJSON(w, http.StatusOK, result)
}

func (t *Transport) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req model.SubmitRequest
	if !t.decode(w, r, &req, "Invalid JSON or missing URLs") {
		return
	}

	created, err := t.service.Submit(r.Context(), req.URLs)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}
	t.renderJSON(w, http.StatusOK, submitResponse{Status: "added for analysis", Links: created})
}

func (t *Transport) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req model.StatusUpdate
	if !t.decode(w, r, &req, "Invalid request format") {
		return
	}

	link, err := t.service.UpdateStatus(r.Context(), req.ID, req.Status)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}
	t.renderJSON(w, http.StatusOK, updateResponse{
		Message: "Link status updated successfully",
		ID:      link.ID,
		Status:  link.Status,
	})
}

func (t *Transport) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !t.decode(w, r, &req, "Invalid request body. Please send a JSON object with a \"url\" field.") {
		return
	}

	if err := req.validate(); err != nil {
		t.renderError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), t.analyzeTimeout)
	defer cancel()

	result, err := t.service.Analyze(ctx, req.URL)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}

	t.renderJSON(w, http.StatusOK, result)
}

// decode reads a JSON body into dst and answers 400 with message when it
// cannot.
func (t *Transport) decode(w http.ResponseWriter, r *http.Request, dst any, message string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		t.renderError(w, http.StatusBadRequest, message)
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func (t *Transport) handleServiceError(w http.ResponseWriter, err error) {
	var appErr *errs.AppError
	if errors.As(err, &appErr) {
		t.renderError(w, errs.HTTPStatus(appErr.Kind), appErr.Message)
		return
	}

	t.logger.Error("request failed", "error", err)
	t.renderError(w, http.StatusInternalServerError, "An unexpected error occurred.")
}

func (t *Transport) renderJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		t.logger.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"Internal Server Error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (t *Transport) renderError(w http.ResponseWriter, status int, message string) {
	t.renderJSON(w, status, model.ErrorResponse{
		Error:      http.StatusText(status),
		StatusCode: status,
		Message:    message,
	})
}
