// Package httpapi is the boundary the UI layer talks to. It exposes whole
// collections, the audit trail, the sync engine, and the device registry over
// a small JSON surface and owns the locked-attendance gate.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
	"github.com/atvirokodosprendimai/rostersync/internal/core/ports"
	"github.com/atvirokodosprendimai/rostersync/internal/core/usecase"
)

const maxJSONBodySize = 8 << 20

type Handler struct {
	entities *usecase.EntityService
	audit    *usecase.AuditService
	registry *usecase.RegistryService
	syncer   *usecase.SyncService
	alerts   *usecase.AlertService
	intel    *usecase.IntelligenceService
	seeder   *usecase.SeedService
	dialer   ports.RemoteDialer
	log      zerolog.Logger
}

func NewHandler(
	entities *usecase.EntityService,
	audit *usecase.AuditService,
	registry *usecase.RegistryService,
	syncer *usecase.SyncService,
	alerts *usecase.AlertService,
	intel *usecase.IntelligenceService,
	seeder *usecase.SeedService,
	dialer ports.RemoteDialer,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		entities: entities,
		audit:    audit,
		registry: registry,
		syncer:   syncer,
		alerts:   alerts,
		intel:    intel,
		seeder:   seeder,
		dialer:   dialer,
		log:      log,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", h.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(pr chi.Router) {
		pr.Get("/collections/{collection}", h.getCollection)
		pr.Put("/collections/{collection}", h.putCollection)
		pr.Get("/audit", h.getAudit)
		pr.Post("/audit", h.appendAudit)
		pr.Post("/sync", h.runSync)
		pr.Get("/sync/status", h.syncStatus)
		pr.Get("/alerts", h.getAlerts)
		pr.Get("/intelligence", h.getIntelligence)
		pr.Get("/identity", h.getIdentity)
		pr.Put("/identity", h.putIdentity)
		pr.Get("/settings/remote", h.getRemoteConfig)
		pr.Put("/settings/remote", h.putRemoteConfig)
		pr.Post("/settings/remote:test", h.testRemoteConfig)
		pr.Post("/seed", h.runSeed)
		pr.Post("/factory-reset", h.factoryReset)
	})

	return r
}

type putCollectionRequest struct {
	Items json.RawMessage   `json:"items"`
	Audit *domain.AuditMeta `json:"audit,omitempty"`
}

type identityResponse struct {
	Configured bool            `json:"configured"`
	Identity   domain.Identity `json:"identity"`
}

type remoteConfigRequest struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

type remoteConfigResponse struct {
	URL        string `json:"url"`
	Configured bool   `json:"configured"`
}

type collectionResultResponse struct {
	Collection domain.Collection `json:"collection"`
	Pulled     int               `json:"pulled"`
	Pushed     int               `json:"pushed"`
	Persisted  bool              `json:"persisted"`
	Error      string            `json:"error,omitempty"`
}

type syncReportResponse struct {
	StartedAt  time.Time                  `json:"startedAt"`
	FinishedAt time.Time                  `json:"finishedAt"`
	Ok         bool                       `json:"ok"`
	Results    []collectionResultResponse `json:"results"`
}

func (h *Handler) getCollection(w http.ResponseWriter, r *http.Request) {
	c, ok := h.mutableCollection(w, r)
	if !ok {
		return
	}

	rows, err := h.entities.Rows(r.Context(), c)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"items": rows})
}

func (h *Handler) putCollection(w http.ResponseWriter, r *http.Request) {
	c, ok := h.mutableCollection(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	decoder := json.NewDecoder(r.Body)
	var req putCollectionRequest
	if err := decoder.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := ensureEOF(decoder); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Items == nil {
		h.writeError(w, http.StatusBadRequest, "items is required")
		return
	}

	var err error
	switch c {
	case domain.CollectionPeople:
		var people []domain.Person
		if jsonErr := json.Unmarshal(req.Items, &people); jsonErr != nil {
			h.writeError(w, http.StatusBadRequest, "invalid items")
			return
		}
		err = h.entities.SavePeople(r.Context(), people, req.Audit)
	case domain.CollectionActivities:
		var activities []domain.Activity
		if jsonErr := json.Unmarshal(req.Items, &activities); jsonErr != nil {
			h.writeError(w, http.StatusBadRequest, "invalid items")
			return
		}
		err = h.entities.SaveActivities(r.Context(), activities, req.Audit)
	case domain.CollectionAttendance:
		var attendance []domain.AttendanceRecord
		if jsonErr := json.Unmarshal(req.Items, &attendance); jsonErr != nil {
			h.writeError(w, http.StatusBadRequest, "invalid items")
			return
		}
		if err = h.guardLocked(r, attendance); err == nil {
			err = h.entities.SaveAttendance(r.Context(), attendance, req.Audit)
		}
	}
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

// guardLocked rejects a replacement list that drops a locked attendance
// record, unlocks it, or changes who attended. Locking is one-way and the
// attendee list underneath it is immutable.
func (h *Handler) guardLocked(r *http.Request, incoming []domain.AttendanceRecord) error {
	existing, err := h.entities.Attendance(r.Context())
	if err != nil {
		return err
	}

	byID := make(map[string]domain.AttendanceRecord, len(incoming))
	for _, rec := range incoming {
		byID[rec.ID] = rec
	}
	for _, prev := range existing {
		if !prev.IsLocked {
			continue
		}
		next, found := byID[prev.ID]
		if !found || !next.IsLocked || !prev.SameAttendees(next) {
			return fmt.Errorf("%w: %s", domain.ErrLockedAttendance, prev.ID)
		}
	}
	return nil
}

func (h *Handler) getAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audit.Entries(r.Context())
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

type appendAuditRequest struct {
	Action     string `json:"action"`
	EntityType string `json:"entityType"`
	EntityName string `json:"entityName"`
}

func (h *Handler) appendAudit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	var req appendAuditRequest
	if err := decoder.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := ensureEOF(decoder); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Action == "" {
		h.writeError(w, http.StatusBadRequest, "action is required")
		return
	}

	entry, err := h.audit.Append(r.Context(), req.Action, req.EntityType, req.EntityName)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) runSync(w http.ResponseWriter, r *http.Request) {
	report, err := h.syncer.Sync(r.Context())
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toSyncReportResponse(report))
}

func (h *Handler) syncStatus(w http.ResponseWriter, _ *http.Request) {
	report, ok := h.syncer.Status()
	if !ok {
		h.writeJSON(w, http.StatusOK, map[string]bool{"completed": false})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"completed": true,
		"report":    toSyncReportResponse(report),
	})
}

func (h *Handler) getAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alerts.Check(r.Context(), time.Now().UTC())
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"items": alerts})
}

type intelligenceResponse struct {
	Rankings []domain.VitalityRanking `json:"rankings"`
	AtRisk   []domain.Person          `json:"atRisk"`
}

func (h *Handler) getIntelligence(w http.ResponseWriter, r *http.Request) {
	misses := usecase.DefaultMissWindow
	if raw := r.URL.Query().Get("misses"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "misses must be a positive integer")
			return
		}
		misses = n
	}

	now := time.Now().UTC()
	rankings, err := h.intel.VitalityRankings(r.Context(), now)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	atRisk, err := h.intel.AtRiskMembers(r.Context(), now, misses)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	if rankings == nil {
		rankings = []domain.VitalityRanking{}
	}
	if atRisk == nil {
		atRisk = []domain.Person{}
	}
	h.writeJSON(w, http.StatusOK, intelligenceResponse{Rankings: rankings, AtRisk: atRisk})
}

func (h *Handler) getIdentity(w http.ResponseWriter, r *http.Request) {
	identity, configured, err := h.registry.Identity(r.Context())
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, identityResponse{Configured: configured, Identity: identity})
}

func (h *Handler) putIdentity(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	var identity domain.Identity
	if err := decoder.Decode(&identity); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := ensureEOF(decoder); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if identity.Zero() {
		h.writeError(w, http.StatusBadRequest, "name or email is required")
		return
	}

	if err := h.registry.SetIdentity(r.Context(), identity); err != nil {
		h.handleDomainError(w, err)
		return
	}
	if _, err := h.audit.Append(r.Context(), domain.AuditLogin, "SYSTEM", identity.Name); err != nil {
		h.log.Warn().Err(err).Msg("audit append failed")
	}
	h.writeJSON(w, http.StatusOK, identityResponse{Configured: true, Identity: identity})
}

func (h *Handler) getRemoteConfig(w http.ResponseWriter, r *http.Request) {
	url, key, err := h.registry.RemoteConfig(r.Context())
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	// The access key is write-only through this surface.
	h.writeJSON(w, http.StatusOK, remoteConfigResponse{URL: url, Configured: url != "" && key != ""})
}

func (h *Handler) putRemoteConfig(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	var req remoteConfigRequest
	if err := decoder.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := ensureEOF(decoder); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.URL == "" || req.Key == "" {
		h.writeError(w, http.StatusBadRequest, "url and key are required")
		return
	}

	if err := h.registry.SetRemoteConfig(r.Context(), req.URL, req.Key); err != nil {
		h.handleDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, remoteConfigResponse{URL: req.URL, Configured: true})
}

func (h *Handler) testRemoteConfig(w http.ResponseWriter, r *http.Request) {
	remote, err := h.dialer.Dial(r.Context())
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	if err := remote.Ping(r.Context()); err != nil {
		h.writeError(w, http.StatusBadGateway, "remote unreachable")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"reachable": true})
}

func (h *Handler) runSeed(w http.ResponseWriter, r *http.Request) {
	summary, err := h.seeder.Seed(r.Context(), 0)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) factoryReset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	decoder := json.NewDecoder(r.Body)
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := decoder.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if !req.Confirm {
		h.writeError(w, http.StatusBadRequest, "confirmation required")
		return
	}

	if err := h.entities.FactoryReset(r.Context()); err != nil {
		h.handleDomainError(w, err)
		return
	}
	if err := h.registry.Clear(r.Context()); err != nil {
		h.handleDomainError(w, err)
		return
	}
	h.log.Info().Msg("factory reset completed")
	h.writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// mutableCollection resolves the path parameter to one of the three caller
// writable collections. The audit trail is append-only and served from its
// own endpoint.
func (h *Handler) mutableCollection(w http.ResponseWriter, r *http.Request) (domain.Collection, bool) {
	c := domain.Collection(chi.URLParam(r, "collection"))
	if err := domain.ValidateCollection(c); err != nil || c == domain.CollectionAuditLogs {
		h.writeError(w, http.StatusBadRequest, "unknown collection")
		return "", false
	}
	return c, true
}

func toSyncReportResponse(report domain.SyncReport) syncReportResponse {
	results := make([]collectionResultResponse, 0, len(report.Results))
	for _, res := range report.Results {
		out := collectionResultResponse{
			Collection: res.Collection,
			Pulled:     res.Pulled,
			Pushed:     res.Pushed,
			Persisted:  res.Persisted,
		}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		results = append(results, out)
	}
	return syncReportResponse{
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Ok:         report.Ok(),
		Results:    results,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		h.log.Error().Err(err).Msg("encode json response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		h.log.Warn().Err(err).Msg("write response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]any{"error": message})
}

func (h *Handler) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidCollection):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrSyncInFlight), errors.Is(err, domain.ErrLockedAttendance), errors.Is(err, domain.ErrSandboxRequired):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrRemoteNotConfigured):
		h.writeError(w, http.StatusPreconditionFailed, err.Error())
	default:
		h.log.Error().Err(err).Msg("request failed")
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func ensureEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return errors.New("extra json tokens")
}
