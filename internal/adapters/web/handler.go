// Package web serves the hospital dashboard and its form actions over HTTP.
package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hospitalcore/internal/core"
	"hospitalcore/internal/export"
	"hospitalcore/pkg/domain"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Service is the state surface the handlers drive.
type Service interface {
	AddPatient(ctx context.Context, id int, name string)
	DeletePatient(ctx context.Context, id int) bool
	Patients() []domain.PatientRecord
	EnqueueRequest(ctx context.Context, name string)
	ProcessRequest(ctx context.Context) (string, bool)
	PushIncident(ctx context.Context, text string)
	UndoIncident(ctx context.Context) (string, bool)
	AddStaff(ctx context.Context, department, name string) bool
	RemoveStaff(ctx context.Context, department, name string) bool
	Departments() []string
	AddRoute(ctx context.Context, a, b string)
	DeleteRoute(ctx context.Context, a, b string)
	InsertEmergency(ctx context.Context, id int, name string)
	SearchEmergency(id int) (string, bool)
	DeleteEmergency(ctx context.Context, id int) bool
	Dashboard() domain.Dashboard
	Phase() core.Phase
	Driver() string
	LastPersistenceError() error
}

// Handler handles the dashboard endpoints.
type Handler struct {
	svc      Service
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// New creates a Handler. A nil gatherer disables /metrics.
func New(svc Service, logger *slog.Logger, gatherer prometheus.Gatherer) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{svc: svc, logger: logger, gatherer: gatherer}
}

// Router builds the chi router with the standard middleware stack.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(AccessLog(h.logger))
	h.Register(r)
	return r
}

// Register registers the routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.handleIndex)

	r.Post("/add_patient", h.handleAddPatient)
	r.Get("/delete_patient/{id}", h.handleDeletePatient)

	r.Post("/add_queue", h.handleAddQueue)
	r.Get("/process_queue", h.handleProcessQueue)

	r.Post("/add_incident", h.handleAddIncident)
	r.Get("/undo_incident", h.handleUndoIncident)

	r.Post("/add_route", h.handleAddRoute)
	r.Get("/delete_route/{a}/{b}", h.handleDeleteRoute)

	r.Post("/add_hash", h.handleAddHash)
	r.Post("/search_hash", h.handleSearchHash)
	r.Get("/delete_hash/{id}", h.handleDeleteHash)

	r.Post("/add_staff", h.handleAddStaff)
	r.Post("/remove_staff", h.handleRemoveStaff)

	r.Get("/export/patients.csv", h.handleExportPatients)
	r.Get("/api/v1/state", h.handleState)
	r.Get("/healthz", h.handleHealth)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
}

type indexView struct {
	domain.Dashboard
	Director    domain.OrgUnit
	Departments []string
	Buckets     []bucketView
}

type bucketView struct {
	Index   int
	Entries []domain.HashEntry
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	dash := h.svc.Dashboard()
	view := indexView{
		Dashboard:   dash,
		Director:    dash.Hierarchy[domain.DirectorTitle],
		Departments: h.svc.Departments(),
	}
	for i, entries := range dash.HashTable {
		view.Buckets = append(view.Buckets, bucketView{Index: i, Entries: entries})
	}
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, view); err != nil {
		h.logger.ErrorContext(r.Context(), "render index failed",
			"request_id", middleware.GetReqID(r.Context()),
			"error", err.Error(),
		)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *Handler) handleAddPatient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.formInt(w, r, "id")
	if !ok {
		return
	}
	h.svc.AddPatient(r.Context(), id, r.FormValue("name"))
	redirectHome(w, r)
}

func (h *Handler) handleDeletePatient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathInt(w, r, "id")
	if !ok {
		return
	}
	h.svc.DeletePatient(r.Context(), id)
	redirectHome(w, r)
}

func (h *Handler) handleAddQueue(w http.ResponseWriter, r *http.Request) {
	h.svc.EnqueueRequest(r.Context(), r.FormValue("name"))
	redirectHome(w, r)
}

func (h *Handler) handleProcessQueue(w http.ResponseWriter, r *http.Request) {
	h.svc.ProcessRequest(r.Context())
	redirectHome(w, r)
}

func (h *Handler) handleAddIncident(w http.ResponseWriter, r *http.Request) {
	h.svc.PushIncident(r.Context(), r.FormValue("incident"))
	redirectHome(w, r)
}

func (h *Handler) handleUndoIncident(w http.ResponseWriter, r *http.Request) {
	h.svc.UndoIncident(r.Context())
	redirectHome(w, r)
}

func (h *Handler) handleAddRoute(w http.ResponseWriter, r *http.Request) {
	h.svc.AddRoute(r.Context(), r.FormValue("city_a"), r.FormValue("city_b"))
	redirectHome(w, r)
}

func (h *Handler) handleDeleteRoute(w http.ResponseWriter, r *http.Request) {
	a, ok := h.pathString(w, r, "a")
	if !ok {
		return
	}
	b, ok := h.pathString(w, r, "b")
	if !ok {
		return
	}
	h.svc.DeleteRoute(r.Context(), a, b)
	redirectHome(w, r)
}

func (h *Handler) handleAddHash(w http.ResponseWriter, r *http.Request) {
	id, ok := h.formInt(w, r, "pid")
	if !ok {
		return
	}
	h.svc.InsertEmergency(r.Context(), id, r.FormValue("name"))
	redirectHome(w, r)
}

var searchResultTemplate = template.Must(template.New("search").Parse(
	`<h1>Search Result: {{if .}}{{.}}{{else}}Not Found{{end}}</h1><a href='/'>Back</a>`))

func (h *Handler) handleSearchHash(w http.ResponseWriter, r *http.Request) {
	id, ok := h.formInt(w, r, "pid")
	if !ok {
		return
	}
	// an empty stored name renders as not found
	name, _ := h.svc.SearchEmergency(id)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := searchResultTemplate.Execute(w, name); err != nil {
		h.logger.ErrorContext(r.Context(), "render search result failed", "error", err.Error())
	}
}

func (h *Handler) handleDeleteHash(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathInt(w, r, "id")
	if !ok {
		return
	}
	h.svc.DeleteEmergency(r.Context(), id)
	redirectHome(w, r)
}

func (h *Handler) handleAddStaff(w http.ResponseWriter, r *http.Request) {
	h.svc.AddStaff(r.Context(), r.FormValue("department"), r.FormValue("staff_name"))
	redirectHome(w, r)
}

func (h *Handler) handleRemoveStaff(w http.ResponseWriter, r *http.Request) {
	h.svc.RemoveStaff(r.Context(), r.FormValue("department"), r.FormValue("staff_name"))
	redirectHome(w, r)
}

func (h *Handler) handleExportPatients(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.PatientsCSV(&buf, h.svc.Patients()); err != nil {
		h.logger.ErrorContext(r.Context(), "render patients csv failed", "error", err.Error())
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", export.ContentTypeCSV)
	w.Header().Set("Content-Disposition", `attachment; filename="patients.csv"`)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Dashboard())
}

type healthResponse struct {
	Status    string `json:"status"`
	Phase     string `json:"phase"`
	Driver    string `json:"driver"`
	LastError string `json:"last_error,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Phase:  h.svc.Phase().String(),
		Driver: h.svc.Driver(),
	}
	status := http.StatusOK
	if h.svc.Phase() != core.PhaseReady {
		resp.Status = "starting"
		status = http.StatusServiceUnavailable
	}
	if err := h.svc.LastPersistenceError(); err != nil {
		resp.Status = "degraded"
		resp.LastError = err.Error()
	}
	writeJSON(w, status, resp)
}

func (h *Handler) formInt(w http.ResponseWriter, r *http.Request, field string) (int, bool) {
	return h.parseInt(w, r, field, r.FormValue(field))
}

func (h *Handler) pathInt(w http.ResponseWriter, r *http.Request, param string) (int, bool) {
	raw, ok := h.pathString(w, r, param)
	if !ok {
		return 0, false
	}
	return h.parseInt(w, r, param, raw)
}

// pathString returns the decoded URL parameter. chi matches on RawPath when
// it is set (non-canonical escapes such as lowercase hex), and the
// parameter is then still escaped.
func (h *Handler) pathString(w http.ResponseWriter, r *http.Request, param string) (string, bool) {
	v := chi.URLParam(r, param)
	if r.URL.RawPath == "" {
		return v, true
	}
	decoded, err := url.PathUnescape(v)
	if err != nil {
		h.logger.WarnContext(r.Context(), "invalid path escape",
			"request_id", middleware.GetReqID(r.Context()),
			"param", param,
			"value", v,
		)
		http.Error(w, "invalid "+param+": bad escape", http.StatusBadRequest)
		return "", false
	}
	return decoded, true
}

func (h *Handler) parseInt(w http.ResponseWriter, r *http.Request, field, raw string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		h.logger.WarnContext(r.Context(), "invalid integer input",
			"request_id", middleware.GetReqID(r.Context()),
			"field", field,
			"value", raw,
		)
		http.Error(w, "invalid "+field+": must be an integer", http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
