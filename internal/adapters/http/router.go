package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fabworks/partquote/internal/config"
	"github.com/fabworks/partquote/internal/core/domain"
	"github.com/fabworks/partquote/internal/core/ports"
	"github.com/fabworks/partquote/internal/infrastructure/export/excel"
	"github.com/fabworks/partquote/internal/observability/metrics"
)

const (
	serviceName      = "api"
	backpressureWait = 2 * time.Second
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Router struct {
	cfg      config.Config
	ingest   ports.PartIngestor
	parts    ports.PartReader
	quotes   ports.QuoteService
	geometry ports.GeometryService
	exporter *excel.Exporter
	metrics  *metrics.HTTPServerMetrics
}

// NewRouter wires the public API surface. geometry may be nil when the
// external service is disabled; serverMetrics may be nil in tests.
func NewRouter(
	cfg config.Config,
	ingest ports.PartIngestor,
	parts ports.PartReader,
	quotes ports.QuoteService,
	geometry ports.GeometryService,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:      cfg,
		ingest:   ingest,
		parts:    parts,
		quotes:   quotes,
		geometry: geometry,
		exporter: excel.NewExporter(),
		metrics:  serverMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/openapi.json", rt.openapiSpec)
	mux.HandleFunc("/v1/parts", rt.uploadPart)
	mux.HandleFunc("/v1/parts/", rt.getPartByID)
	mux.HandleFunc("/v1/quotes", rt.createQuote)
	mux.HandleFunc("/v1/quotes/", rt.quoteSubresource)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"status":           "ok",
		"geometry_service": "disabled",
	}
	if rt.geometry != nil {
		if err := rt.geometry.CheckHealth(r.Context()); err != nil {
			resp["geometry_service"] = "degraded"
		} else {
			resp["geometry_service"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) uploadPart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if rt.cfg.MaxUploadSizeMB > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(rt.cfg.MaxUploadSizeMB)<<20)
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": fmt.Sprintf("upload exceeds %d MB limit", rt.cfg.MaxUploadSizeMB),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	opts := ports.UploadOptions{
		Material:  r.FormValue("material"),
		Tolerance: r.FormValue("tolerance"),
	}
	if v := r.FormValue("quantity"); v != "" {
		quantity, err := strconv.Atoi(v)
		if err != nil || quantity < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be a positive integer"})
			return
		}
		opts.Quantity = quantity
	}
	if v := r.FormValue("force_reanalyze"); v != "" {
		force, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "force_reanalyze must be a boolean"})
			return
		}
		opts.ForceReanalyze = force
	}

	part, err := rt.ingest.Upload(r.Context(), fileHeader.Filename, fileHeader.Size, file, opts)
	if rt.metrics != nil {
		rt.metrics.RecordPartUpload(serviceName, err)
	}
	if err != nil {
		rt.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, part)
}

func (rt *Router) getPartByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/parts/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "part id is required"})
		return
	}

	part, err := rt.parts.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, part)
}

func (rt *Router) createQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.quotes.Quote(r.Context(), req)
	if rt.metrics != nil {
		rt.metrics.RecordQuote(serviceName, err)
	}
	if err != nil {
		rt.writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.ObserveQuoteUnitPrice(serviceName, result.UnitPrice)
		for _, warning := range result.Warnings {
			rt.metrics.RecordQuoteWarning(serviceName, warning.Kind)
		}
	}

	writeJSON(w, http.StatusCreated, result)
}

func (rt *Router) quoteSubresource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/v1/quotes/")
	if id, ok := strings.CutSuffix(path, "/export"); ok {
		rt.exportQuote(w, r, id)
		return
	}

	if path == "" || strings.Contains(path, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quote id is required"})
		return
	}

	_, result, err := rt.quotes.GetByID(r.Context(), path)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) exportQuote(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quote id is required"})
		return
	}

	req, result, err := rt.quotes.GetByID(r.Context(), id)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordQuoteExport(serviceName, err)
		}
		rt.writeError(w, err)
		return
	}

	// Render to a buffer first so exporter failures still map to a JSON
	// error instead of a truncated workbook.
	var buf bytes.Buffer
	err = rt.exporter.Export(&buf, req, result)
	if rt.metrics != nil {
		rt.metrics.RecordQuoteExport(serviceName, err)
	}
	if err != nil {
		rt.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=quote-%s.xlsx", id))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (rt *Router) writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
