// Package http serves the read-only reporting API.
//
// This file turns query strings into validated report parameters.

package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"finreport/internal/core"
	"finreport/internal/period"
	"finreport/internal/report"
	"finreport/internal/services"
)

const defaultPeriod = period.Month

// ReportParams holds the parsed parameters shared by the report endpoints.
type ReportParams struct {
	Period    period.Type
	Filters   core.Filters
	Kind      services.RecordKind
	Dimension report.Dimension
}

// Key identifies the request for stale-response tracking.
func (p ReportParams) Key() string {
	return string(p.Period) + "|" + string(p.Kind) + "|" + string(p.Dimension) + "|" + p.Filters.Key()
}

// ParamError reports a query parameter that could not be parsed.
type ParamError struct {
	Param string
	Value string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Param, e.Value, e.Err)
}

func (e *ParamError) Unwrap() error {
	return e.Err
}

// ParseReportParams reads period, kind, dimension and the attribute
// filters from query. Missing values take their defaults: the current
// month, expenses, grouped by category, unfiltered.
func ParseReportParams(query url.Values) (ReportParams, error) {
	params := ReportParams{
		Period:    defaultPeriod,
		Kind:      services.KindExpense,
		Dimension: report.DimensionCategory,
	}

	if v := sanitizeInput(query.Get("period")); v != "" {
		t, err := period.ParseType(v)
		if err != nil {
			return ReportParams{}, &ParamError{Param: "period", Value: v, Err: err}
		}
		params.Period = t
	}

	kind := sanitizeInput(query.Get("kind"))
	k, err := services.ParseRecordKind(kind)
	if err != nil {
		return ReportParams{}, &ParamError{Param: "kind", Value: kind, Err: err}
	}
	params.Kind = k

	dim := sanitizeInput(query.Get("dimension"))
	d, err := report.ParseDimension(dim)
	if err != nil {
		return ReportParams{}, &ParamError{Param: "dimension", Value: dim, Err: err}
	}
	params.Dimension = d

	params.Filters = core.Filters{
		Category:      sanitizeInput(query.Get("category")),
		PaymentMethod: sanitizeInput(query.Get("payment_method")),
		StaffID:       sanitizeInput(query.Get("staff_id")),
	}

	return params, nil
}

var errMissingJobID = errors.New("job id is required")

// ParseJobID reads the {id} path segment.
func ParseJobID(r *http.Request) (string, error) {
	id := sanitizeInput(r.PathValue("id"))
	if id == "" {
		return "", &ParamError{Param: "job id", Err: errMissingJobID}
	}
	return id, nil
}
