package dashboard

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"

	"github.com/Bahjat/linkboard/internal/lifecycle"
	"github.com/Bahjat/linkboard/internal/model"
	"github.com/Bahjat/linkboard/internal/notify"
	"github.com/Bahjat/linkboard/internal/platform/errs"
	"github.com/Bahjat/linkboard/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

// Column describes one table column.
type Column struct {
	Path       string
	Label      string
	Filterable bool
}

// Columns are the table columns in display order. Every column can be sorted.
var Columns = []Column{
	{view.FieldID, "ID", false},
	{view.FieldURL, "URL", true},
	{view.FieldStatus, "Status", true},
	{view.FieldTitle, "Title", true},
	{view.FieldHTMLVersion, "HTML Version", true},
	{view.HeadingField(1), "H1", true},
	{view.HeadingField(2), "H2", true},
	{view.HeadingField(3), "H3", true},
	{view.HeadingField(4), "H4", true},
	{view.HeadingField(5), "H5", true},
	{view.HeadingField(6), "H6", true},
	{view.FieldInternalLinks, "Internal", true},
	{view.FieldExternalLinks, "External", true},
	{view.FieldInaccessibleLinks, "Inaccessible", true},
	{view.FieldHasLoginForm, "Login Form", true},
}

// Notices supplies the messages to show on the next render.
type Notices interface {
	Drain() []notify.Notice
}

// Transport serves the dashboard page, its form actions, and a JSON view.
type Transport struct {
	session    *Session
	controller *lifecycle.Controller
	notices    Notices
	logger     *slog.Logger
	tmpl       *template.Template
}

// NewTransport parses the embedded page template and returns a Transport.
func NewTransport(session *Session, controller *lifecycle.Controller, notices Notices, logger *slog.Logger) (*Transport, error) {
	policy := bluemonday.StrictPolicy()
	tmpl, err := template.New("index.html").Funcs(template.FuncMap{
		// The strict policy strips every tag and escapes the rest.
		"plain": func(s string) template.HTML { return template.HTML(policy.Sanitize(s)) }, //nolint:gosec
		"cell":  cell,
		"sortMark": func(k view.SortKey, path string) string {
			if k.Field != path {
				return ""
			}
			switch k.Direction {
			case view.Asc:
				return "▲"
			case view.Desc:
				return "▼"
			}
			return ""
		},
	}).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	return &Transport{
		session:    session,
		controller: controller,
		notices:    notices,
		logger:     logger,
		tmpl:       tmpl,
	}, nil
}

// RegisterRoutes attaches the dashboard handlers to r.
func (t *Transport) RegisterRoutes(r chi.Router) {
	r.Get("/", t.handleIndex)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		t.renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/view", t.handleView)

	r.Post("/refresh", t.action(func(r *http.Request) error { return t.session.Refresh(r.Context()) }))
	r.Post("/filters", t.action(t.applyFilters))
	r.Post("/search", t.action(func(r *http.Request) error {
		return t.session.SetSearch(r.Context(), r.PostFormValue("q"))
	}))
	r.Post("/sort", t.action(func(r *http.Request) error {
		t.session.ToggleSort(r.PostFormValue("field"))
		return nil
	}))
	r.Post("/page-size", t.action(func(r *http.Request) error {
		n, err := formInt(r, "size")
		if err != nil {
			return err
		}
		return t.session.SetPageSize(r.Context(), n)
	}))
	r.Post("/page", t.action(func(r *http.Request) error {
		n, err := formInt(r, "page")
		if err != nil {
			return err
		}
		return t.session.GoTo(r.Context(), n)
	}))
	r.Post("/prev", t.action(func(r *http.Request) error { return t.session.Prev(r.Context()) }))
	r.Post("/next", t.action(func(r *http.Request) error { return t.session.Next(r.Context()) }))

	r.Post("/stage", t.action(func(r *http.Request) error {
		t.controller.Stage(r.Context(), r.PostFormValue("urls"))
		return nil
	}))
	r.Post("/send", t.action(func(r *http.Request) error { return t.controller.Send(r.Context()) }))
	r.Post("/links/{id}/analyze", t.action(t.rowAction(t.controller.Analyze)))
	r.Post("/links/{id}/stop", t.action(t.rowAction(t.controller.Stop)))
}

type pageData struct {
	Snapshot
	Columns []Column
	// Span covers the data columns plus the action column.
	Span    int
	Sizes   []int
	Staged  []string
	Notices []notify.Notice
}

type viewResponse struct {
	Snapshot
	Staged  []string        `json:"staged"`
	Notices []notify.Notice `json:"notices"`
}

func (t *Transport) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := t.snapshot(r.Context())

	var buf bytes.Buffer
	err := t.tmpl.Execute(&buf, pageData{
		Snapshot: snap,
		Columns:  Columns,
		Span:     len(Columns) + 1,
		Sizes:    view.PageSizes,
		Staged:   t.controller.Staged(),
		Notices:  t.notices.Drain(),
	})
	if err != nil {
		t.logger.Error("failed to render page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (t *Transport) handleView(w http.ResponseWriter, r *http.Request) {
	t.renderJSON(w, http.StatusOK, viewResponse{
		Snapshot: t.snapshot(r.Context()),
		Staged:   t.controller.Staged(),
		Notices:  t.notices.Drain(),
	})
}

// snapshot loads the first page on the first visit.
func (t *Transport) snapshot(ctx context.Context) Snapshot {
	snap := t.session.Snapshot()
	if snap.Loaded {
		return snap
	}
	// Failures are reported through the notices.
	_ = t.session.Refresh(ctx)
	return t.session.Snapshot()
}

func (t *Transport) applyFilters(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return &errs.AppError{Kind: errs.InvalidInput, Message: "Invalid form", Cause: err}
	}
	for _, c := range Columns {
		if !c.Filterable {
			continue
		}
		if _, sent := r.PostForm[c.Path]; !sent {
			continue
		}
		if err := t.session.SetFilter(r.Context(), c.Path, r.PostForm.Get(c.Path)); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) rowAction(do func(context.Context, model.Link) error) func(*http.Request) error {
	return func(r *http.Request) error {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			return &errs.AppError{Kind: errs.InvalidInput, Message: "Invalid link id"}
		}
		link, ok := t.session.Link(id)
		if !ok {
			return &errs.AppError{Kind: errs.NotFound, Message: "Link is not on the current page"}
		}
		return do(r.Context(), link)
	}
}

// action runs fn and redirects back to the table. Remote failures have
// already been turned into notices; only request errors are answered
// directly.
func (t *Transport) action(fn func(*http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(r)
		switch {
		case err == nil:
		case errors.Is(err, lifecycle.ErrActionDisabled):
			t.renderError(w, http.StatusConflict, "This action is not available for the link's current status.")
			return
		case errors.Is(err, lifecycle.ErrEmptyBatch):
			t.renderError(w, http.StatusBadRequest, "No URLs are staged.")
			return
		default:
			if k := errs.KindOf(err); k == errs.InvalidInput || k == errs.NotFound {
				var appErr *errs.AppError
				errors.As(err, &appErr)
				t.renderError(w, errs.HTTPStatus(k), appErr.Message)
				return
			}
			t.logger.Warn("dashboard action failed", "path", r.URL.Path, "error", err)
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func formInt(r *http.Request, key string) (int, error) {
	n, err := strconv.Atoi(r.PostFormValue(key))
	if err != nil {
		return 0, &errs.AppError{Kind: errs.InvalidInput, Message: "Invalid " + key, Cause: err}
	}
	return n, nil
}

// cell renders the value at path for the table.
func cell(l model.Link, path string) string {
	v, ok := view.Fields.Resolve(&l, path)
	if !ok {
		return ""
	}
	return v.Text()
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
