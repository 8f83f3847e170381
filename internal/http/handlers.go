package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"finreport/internal/core"
	"finreport/internal/log"
	"finreport/internal/period"
	"finreport/internal/report"
	"finreport/internal/services"
)

type seriesResponse struct {
	State   string         `json:"state"`
	Series  *report.Series `json:"series"`
	Summary report.Summary `json:"summary"`
}

type summaryResponse struct {
	State   string         `json:"state"`
	Period  *period.Period `json:"period"`
	Summary report.Summary `json:"summary"`
}

type categoriesResponse struct {
	State     string                 `json:"state"`
	Period    *period.Period         `json:"period"`
	Kind      services.RecordKind    `json:"kind"`
	Dimension report.Dimension       `json:"dimension"`
	Total     decimal.Decimal        `json:"total"`
	Groups    []report.CategoryGroup `json:"groups"`
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks that the record store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{
		"rate_limiter_clients": s.rateLimiter.activeClients(),
		"rate_limited":         s.rateLimiter.limitedRequests(),
		"requests_in_flight":   s.tracker.Len(),
	}

	if err := s.reports.Ping(ctx); err != nil {
		checks["record_store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["record_store"] = "ok"
	}

	NewJSONResponse().
		Status(httpStatus).
		Data(map[string]any{"status": status, "checks": checks}).
		Write(w)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	params, err := ParseReportParams(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	series, err := services.Guard(ctx, s.tracker, scope(r, "series"), params.Key(),
		func(ctx context.Context) (*report.Series, error) {
			return s.reports.Series(ctx, params.Period, params.Filters)
		})
	if err != nil {
		s.writeError(w, r, "series", err)
		return
	}

	resp := seriesResponse{State: StateOK, Series: series, Summary: report.SummarizeSeries(series)}
	if series == nil {
		resp.State = StateEmpty
	}
	NewJSONResponse().Data(resp).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	params, err := ParseReportParams(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	sum, err := services.Guard(ctx, s.tracker, scope(r, "summary"), params.Key(),
		func(ctx context.Context) (report.Summary, error) {
			return s.reports.Summary(ctx, params.Period, params.Filters)
		})
	if err != nil {
		s.writeError(w, r, "summary", err)
		return
	}

	resp := summaryResponse{State: StateEmpty, Summary: sum}
	if p, err := s.reports.Resolve(params.Period); err == nil {
		resp.State, resp.Period = StateOK, &p
	}
	NewJSONResponse().Data(resp).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	params, err := ParseReportParams(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	groups, err := services.Guard(ctx, s.tracker, scope(r, "categories"), params.Key(),
		func(ctx context.Context) ([]report.CategoryGroup, error) {
			return s.reports.Categories(ctx, params.Period, params.Kind, params.Dimension, params.Filters)
		})
	if err != nil {
		s.writeError(w, r, "categories", err)
		return
	}
	if groups == nil {
		groups = []report.CategoryGroup{}
	}

	resp := categoriesResponse{
		State:     StateEmpty,
		Kind:      params.Kind,
		Dimension: params.Dimension,
		Total:     report.GroupTotal(groups),
		Groups:    groups,
	}
	if p, err := s.reports.Resolve(params.Period); err == nil {
		resp.State, resp.Period = StateOK, &p
	}
	NewJSONResponse().Data(resp).Write(w)
}

func (s *Server) handleJobLedger(w http.ResponseWriter, r *http.Request) {
	jobID, err := ParseJobID(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	jr, err := services.Guard(ctx, s.tracker, scope(r, "job"), jobID,
		func(ctx context.Context) (services.JobReport, error) {
			return s.reports.JobLedger(ctx, jobID)
		})
	if err != nil {
		s.writeError(w, r, "job", err)
		return
	}
	NewJSONResponse().Data(jr).Write(w)
}

// writeError maps service errors onto responses. Upstream failures become
// 502 with the no_data state; nothing partial is ever returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, route string, err error) {
	ctx := r.Context()
	fields := log.NewFields().WithRequestID(log.RequestIDFromContext(ctx))
	fields[log.FieldReport] = route

	switch {
	case errors.Is(err, services.ErrStaleResponse):
		log.FromContext(ctx).DebugContext(ctx, "Discarded superseded response", log.FieldReport, route)
		StaleError().Write(w)
	case errors.Is(err, core.ErrJobNotFound):
		NotFoundError("job not found").Write(w)
	case errors.Is(err, core.ErrUnknownPeriodType), errors.Is(err, core.ErrInvalidFilters):
		BadRequestError(err.Error()).Write(w)
	case core.IsUpstream(err):
		s.events.LogError(ctx, "Report unavailable", err, log.ComponentHTTP, log.OpRead,
			fields.WithError(err, log.ErrorTypeUpstream))
		NoDataError("record store unavailable").Write(w)
	default:
		s.events.LogError(ctx, "Report failed", err, log.ComponentHTTP, log.OpRead,
			fields.WithError(err, log.ErrorTypeInternal))
		InternalServerError("internal error").Write(w)
	}
}

// scope is the stale-tracking scope of a request. Only callers that
// identify themselves with X-Client-ID are tracked.
func scope(r *http.Request, route string) string {
	client := headerID(r, headerClientID)
	if client == "" {
		return ""
	}
	return client + ":" + route
}
