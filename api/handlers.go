/*
handlers.go - HTTP API handlers for the COPD mortality comparison

PURPOSE:
  Exposes the study via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to the copd study and the table store.

ENDPOINTS:
  Health:
    GET    /healthz                     Liveness check

  Study:
    GET    /api/study                   Current study definition
    GET    /api/populations             Populations of interest
    GET    /api/statistics              Crude rate and ASDR for every population
    GET    /api/statistics/{id}         Crude rate and ASDR for one population

  Tables:
    GET    /api/tables                  List stored tables
    GET    /api/tables/{name}           Header and first rows (?limit=N)
    PUT    /api/tables/{name}           Replace a table with a CSV body
    DELETE /api/tables/{name}           Remove a table

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Table storage (SQLite in production, memory in tests)
  - Config: The study run on every statistics request

  A study is built per request so an uploaded table is used immediately.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Unreadable request body (malformed CSV)
  - 404: Unknown population, missing table
  - 422: Tables that do not fit the study (schema mismatch, bad values)
  - 500: Internal errors

  GET /api/statistics returns 200 when tables load, even if a population
  failed; its error is in that population's entry.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/warp/copd-rates/copd"
	"github.com/warp/copd-rates/factory"
	"github.com/warp/copd-rates/generic"
	"github.com/warp/copd-rates/report"
	"github.com/warp/copd-rates/store/csvfile"
	"github.com/warp/copd-rates/store/sqlite"
)

// MaxUploadBytes bounds a PUT /api/tables body.
const MaxUploadBytes = 256 << 20

const defaultPreviewRows = 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// TableStore is the storage the API reads from and uploads into.
type TableStore interface {
	generic.TableSource
	generic.TableLister
	generic.TableWriter
}

// tableDeleter and tableInfoLister are optional store capabilities.
type tableDeleter interface {
	DeleteTable(ctx context.Context, name string) error
}

type tableInfoLister interface {
	ListTables(ctx context.Context) ([]sqlite.TableInfo, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  TableStore
	Config copd.Config
	Logger *log.Logger
}

// NewHandler creates a new handler serving cfg from store.
func NewHandler(store TableStore, cfg copd.Config) *Handler {
	return &Handler{
		Store:  store,
		Config: cfg,
		Logger: log.Default(),
	}
}

func (h *Handler) study() (*copd.Study, error) {
	s, err := copd.NewStudy(h.Config, h.Store)
	if err != nil {
		return nil, err
	}
	if h.Logger != nil {
		s.Logger = h.Logger
	}
	return s, nil
}

// =============================================================================
// STUDY HANDLERS
// =============================================================================

// Health reports that the server is up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// GetStudy returns the study definition in its YAML schema, as JSON.
func (h *Handler) GetStudy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, factory.ToYAML(h.Config, nil))
}

// ListPopulations returns the populations of interest.
func (h *Handler) ListPopulations(w http.ResponseWriter, r *http.Request) {
	dtos := make([]PopulationDTO, len(h.Config.Populations))
	for i, p := range h.Config.Populations {
		dtos[i] = toPopulationDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStatistics runs the study for every population.
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	s, err := h.study()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Invalid study", err)
		return
	}
	results, err := s.Run(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to load study tables", err)
		return
	}
	writeJSON(w, http.StatusOK, StatisticsResponse{
		ReferenceYear: h.Config.ReferenceYear,
		Results:       report.Summarize(h.Config, results),
	})
}

// GetPopulationStatistics runs the study for one population.
func (h *Handler) GetPopulationStatistics(w http.ResponseWriter, r *http.Request) {
	id := generic.PopulationID(chi.URLParam(r, "id"))

	s, err := h.study()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Invalid study", err)
		return
	}
	stats, err := s.RunPopulation(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to compute statistics", err)
		return
	}

	summaries := report.Summarize(h.Config, []generic.Result{{PopulationID: id, Statistics: stats}})
	writeJSON(w, http.StatusOK, summaries[0])
}

// =============================================================================
// TABLE HANDLERS
// =============================================================================

// ListTables returns the stored tables.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if il, ok := h.Store.(tableInfoLister); ok {
		infos, err := il.ListTables(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list tables", err)
			return
		}
		dtos := make([]TableDTO, len(infos))
		for i, info := range infos {
			importedAt := info.ImportedAt
			dtos[i] = TableDTO{
				Name:       info.Name,
				Columns:    info.Columns,
				Rows:       info.Rows,
				Source:     info.Source,
				ImportedAt: &importedAt,
			}
		}
		writeJSON(w, http.StatusOK, dtos)
		return
	}

	names, err := h.Store.Names(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tables", err)
		return
	}
	dtos := make([]TableDTO, 0, len(names))
	for _, name := range names {
		t, err := h.Store.Table(ctx, name)
		if err != nil {
			writeDomainError(w, "Failed to load table", err)
			return
		}
		dtos = append(dtos, toTableDTO(t))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTable returns a table's header and first rows.
func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	limit := defaultPreviewRows
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", err)
			return
		}
		limit = n
	}

	t, err := h.Store.Table(r.Context(), name)
	if err != nil {
		writeDomainError(w, "Failed to load table", err)
		return
	}

	rows := t.Rows
	if len(rows) > limit {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = [][]string{}
	}
	writeJSON(w, http.StatusOK, TablePreviewDTO{TableDTO: toTableDTO(t), Preview: rows})
}

// PutTable replaces a table with the CSV request body. The first line is
// the header.
func (h *Handler) PutTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body := http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	t, err := csvfile.ReadTable(name, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Table too large", err)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid CSV", err)
		return
	}

	if err := h.Store.SaveTable(r.Context(), t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save table", err)
		return
	}
	if h.Logger != nil {
		h.Logger.Printf("table %q replaced: %d columns, %d rows", name, len(t.Columns), t.Len())
	}
	writeJSON(w, http.StatusOK, toTableDTO(t))
}

// DeleteTable removes a table.
func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	d, ok := h.Store.(tableDeleter)
	if !ok {
		writeError(w, http.StatusMethodNotAllowed, "Store does not support deleting tables", nil)
		return
	}
	if err := d.DeleteTable(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeDomainError(w, "Failed to delete table", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message, Code: errorCode(status)}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error's sentinel.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "unprocessable"
	case http.StatusRequestEntityTooLarge:
		return "too_large"
	case http.StatusMethodNotAllowed:
		return "not_supported"
	default:
		return "internal"
	}
}
