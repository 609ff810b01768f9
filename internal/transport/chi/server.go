// Package chi implements the HTTP transport: request decoding, routing, and
// the response envelope around the usecase services.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/nova-cloud/alertdex/internal/domain"
	domquery "github.com/nova-cloud/alertdex/internal/domain/query"
	alertuc "github.com/nova-cloud/alertdex/internal/usecase/alert"
	filteruc "github.com/nova-cloud/alertdex/internal/usecase/filter"
	healthuc "github.com/nova-cloud/alertdex/internal/usecase/health"
	queryuc "github.com/nova-cloud/alertdex/internal/usecase/query"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server wires the usecase services into HTTP handlers.
type Server struct {
	queries       *queryuc.Service
	filters       *filteruc.Service
	alerts        *alertuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	queries *queryuc.Service,
	filters *filteruc.Service,
	alerts *alertuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		queries: queries,
		filters: filters,
		alerts:  alerts,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrBadRequest, http.StatusBadRequest),
		sentinelHandler(domain.ErrValidationRejected, http.StatusBadRequest),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound),
		sentinelHandler(domain.ErrPersistence, http.StatusInternalServerError),
	}
	return s
}

// Routes mounts all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/query/find", s.handleFind)
	r.Post("/query/sample", s.handleSample)
	r.Post("/query/count_documents", s.handleCount)
	r.Post("/query/cone_search", s.handleConeSearch)
	r.Post("/query/info", s.handleInfo)
	r.Post("/filter", s.handlePostFilter)
	r.Patch("/filter", s.handlePatchFilter)
	r.Get("/alerts/{catalog}/{object_id}", s.handleGetObject)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// --- Request shapes (exact wire field names) ---

type queryKwargsBody struct {
	Limit     *int64          `json:"limit"`
	Skip      *int64          `json:"skip"`
	Sort      json.RawMessage `json:"sort"`
	MaxTimeMS *int64          `json:"max_time_ms"`
}

type querySpecBody struct {
	Catalog    string          `json:"catalog"`
	Filter     json.RawMessage `json:"filter"`
	Projection json.RawMessage `json:"projection"`
	Size       *int64          `json:"size"`
}

type queryBody struct {
	Query  *querySpecBody   `json:"query"`
	Kwargs *queryKwargsBody `json:"kwargs"`
}

type coneSearchCatalogBody struct {
	CatalogName string          `json:"catalog_name"`
	Filter      json.RawMessage `json:"filter"`
	Projection  json.RawMessage `json:"projection"`
}

type coneSearchBody struct {
	Radius            *float64               `json:"radius"`
	Unit              *string                `json:"unit"`
	ObjectCoordinates map[string][2]float64  `json:"object_coordinates"`
	Catalog           *coneSearchCatalogBody `json:"catalog"`
	Kwargs            *queryKwargsBody       `json:"kwargs"`
}

type filterSubmissionBody struct {
	Pipeline    []json.RawMessage `json:"pipeline"`
	Permissions []int64           `json:"permissions"`
	Catalog     *string           `json:"catalog"`
	ID          *int32            `json:"id"`
}

type infoQueryBody struct {
	Command  string   `json:"command"`
	Catalogs []string `json:"catalogs"`
}

// --- Handlers ---

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	var body queryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.Query == nil || body.Query.Catalog == "" {
		writeError(w, http.StatusBadRequest, "catalog name required for find")
		return
	}
	if len(body.Query.Filter) == 0 {
		writeError(w, http.StatusBadRequest, "filter required for find")
		return
	}

	filter, projection, kwargs, err := decodeQueryParts(body.Query, body.Kwargs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	docs, err := s.queries.Find(r.Context(), body.Query.Catalog, filter, projection, kwargs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeSuccess(w, fmt.Sprintf("Found document(s) in %s", body.Query.Catalog), docs)
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	var body queryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.Query == nil || body.Query.Catalog == "" {
		writeError(w, http.StatusBadRequest, "catalog name required for sample")
		return
	}
	size := int64(1)
	if body.Query.Size != nil {
		size = *body.Query.Size
	}

	docs, err := s.queries.Sample(r.Context(), body.Query.Catalog, size)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeSuccess(w, fmt.Sprintf("Sample of collection: %s", body.Query.Catalog), docs)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	var body queryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.Query == nil || body.Query.Catalog == "" {
		writeError(w, http.StatusBadRequest, "catalog name required for count_documents")
		return
	}
	filter, err := docFromJSON(body.Query.Filter)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed filter: "+err.Error())
		return
	}

	n, err := s.queries.Count(r.Context(), body.Query.Catalog, filter)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeSuccess(w, fmt.Sprintf("Count of documents in collection: %s", body.Query.Catalog), n)
}

func (s *Server) handleConeSearch(w http.ResponseWriter, r *http.Request) {
	var body coneSearchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.Radius == nil {
		writeError(w, http.StatusBadRequest, "radius required for cone_search")
		return
	}
	if body.Unit == nil {
		writeError(w, http.StatusBadRequest, "unit required for cone_search")
		return
	}
	if len(body.ObjectCoordinates) == 0 {
		writeError(w, http.StatusBadRequest, "object_coordinates required for cone_search")
		return
	}
	if body.Catalog == nil {
		writeError(w, http.StatusBadRequest, "catalog required for cone_search")
		return
	}
	if body.Catalog.CatalogName == "" {
		writeError(w, http.StatusBadRequest, "catalog_name required for cone_search")
		return
	}

	unit, err := domquery.ParseUnit(*body.Unit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	base, err := docFromJSON(body.Catalog.Filter)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed filter: "+err.Error())
		return
	}
	projection, err := docFromJSON(body.Catalog.Projection)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed projection: "+err.Error())
		return
	}
	kwargs, err := kwargsFromBody(body.Kwargs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	targets := make([]domquery.ConeSearchTarget, 0, len(body.ObjectCoordinates))
	for name, radec := range body.ObjectCoordinates {
		targets = append(targets, domquery.ConeSearchTarget{Name: name, RA: radec[0], Dec: radec[1]})
	}

	docs, err := s.queries.ConeSearch(
		r.Context(), body.Catalog.CatalogName, base, projection, *body.Radius, unit, targets, kwargs,
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeSuccess(w, fmt.Sprintf("Cone Search on %s completed", body.Catalog.CatalogName), docs)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	var body infoQueryBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.Command == "" {
		writeError(w, http.StatusBadRequest, "command required for info query")
		return
	}

	switch body.Command {
	case "catalog_names":
		names, err := s.queries.CatalogNames(r.Context())
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeSuccess(w, "Catalog names", names)
	case "catalog_info":
		if len(body.Catalogs) == 0 {
			writeError(w, http.StatusBadRequest, "catalog(s) required for catalog_info")
			return
		}
		stats, err := s.queries.CatalogInfo(r.Context(), body.Catalogs)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeSuccess(w, fmt.Sprintf("Catalog info for %v", body.Catalogs), stats)
	case "index_info":
		if len(body.Catalogs) == 0 {
			writeError(w, http.StatusBadRequest, "catalog(s) required for index_info")
			return
		}
		indexes, err := s.queries.IndexInfo(r.Context(), body.Catalogs)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeSuccess(w, fmt.Sprintf("Index info for %v", body.Catalogs), indexes)
	case "db_info":
		stats, err := s.queries.DBInfo(r.Context())
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeSuccess(w, "Database info", stats)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown command: %s", body.Command))
	}
}

func (s *Server) handlePostFilter(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeFilterSubmission(w, r)
	if !ok {
		return
	}
	if body.Catalog == nil || *body.Catalog == "" {
		writeError(w, http.StatusBadRequest, "catalog not provided")
		return
	}
	if body.Permissions == nil {
		writeError(w, http.StatusBadRequest, "permissions not provided")
		return
	}

	pipeline, err := pipelineFromJSON(body.Pipeline)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed pipeline: "+err.Error())
		return
	}

	if err := s.filters.Submit(r.Context(), *body.ID, *body.Catalog, body.Permissions, pipeline); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeSuccess(w, "successfully submitted filter", nil)
}

func (s *Server) handlePatchFilter(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeFilterSubmission(w, r)
	if !ok {
		return
	}

	pipeline, err := pipelineFromJSON(body.Pipeline)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed pipeline: "+err.Error())
		return
	}

	if err := s.filters.AddVersion(r.Context(), *body.ID, pipeline); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeSuccess(w, "successfully added filter version", nil)
}

// decodeFilterSubmission decodes the shared submission body and checks the
// fields both filter endpoints require.
func (s *Server) decodeFilterSubmission(w http.ResponseWriter, r *http.Request) (filterSubmissionBody, bool) {
	var body filterSubmissionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return body, false
	}
	if body.ID == nil {
		writeError(w, http.StatusBadRequest, "filter id not provided")
		return body, false
	}
	if len(body.Pipeline) == 0 {
		writeError(w, http.StatusBadRequest, "pipeline not provided")
		return body, false
	}
	return body, true
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	cat := chi.URLParam(r, "catalog")
	objectID := chi.URLParam(r, "object_id")

	data, err := s.alerts.GetObject(r.Context(), cat, objectID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeSuccess(w, fmt.Sprintf("Object %s", objectID), data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// --- Decoding helpers ---

// docFromJSON decodes a JSON object into an ordered BSON document. Key order
// survives, which matters for sort specifications and pipeline stages.
func docFromJSON(raw json.RawMessage) (bson.D, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func pipelineFromJSON(raws []json.RawMessage) (mongo.Pipeline, error) {
	pipeline := make(mongo.Pipeline, 0, len(raws))
	for i, raw := range raws {
		stage, err := docFromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		pipeline = append(pipeline, stage)
	}
	return pipeline, nil
}

func decodeQueryParts(
	spec *querySpecBody, kw *queryKwargsBody,
) (filter, projection bson.D, kwargs domquery.Kwargs, err error) {
	if filter, err = docFromJSON(spec.Filter); err != nil {
		return nil, nil, domquery.Kwargs{}, fmt.Errorf("malformed filter: %w", err)
	}
	if projection, err = docFromJSON(spec.Projection); err != nil {
		return nil, nil, domquery.Kwargs{}, fmt.Errorf("malformed projection: %w", err)
	}
	if kwargs, err = kwargsFromBody(kw); err != nil {
		return nil, nil, domquery.Kwargs{}, err
	}
	return filter, projection, kwargs, nil
}

func kwargsFromBody(kw *queryKwargsBody) (domquery.Kwargs, error) {
	if kw == nil {
		return domquery.Kwargs{}, nil
	}
	sort, err := docFromJSON(kw.Sort)
	if err != nil {
		return domquery.Kwargs{}, fmt.Errorf("malformed sort: %w", err)
	}
	return domquery.Kwargs{
		Limit:     kw.Limit,
		Skip:      kw.Skip,
		Sort:      sort,
		MaxTimeMS: kw.MaxTimeMS,
	}, nil
}

// --- Response envelope ---

type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, apiResponse{Status: "success", Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiResponse{Status: "error", Message: message})
}

func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, err.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			s.logger.Warn("request failed", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
