package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"finreport/internal/core"
	"finreport/internal/period"
	"finreport/internal/report"
	"finreport/internal/services"
)

func TestParseReportParams(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    ReportParams
		wantErr string
	}{
		{
			name:  "empty query uses defaults",
			query: url.Values{},
			want: ReportParams{
				Period:    period.Month,
				Kind:      services.KindExpense,
				Dimension: report.DimensionCategory,
			},
		},
		{
			name: "all values provided",
			query: url.Values{
				"period":         {"year"},
				"kind":           {"income"},
				"dimension":      {"payment_method"},
				"category":       {" consulting "},
				"payment_method": {"bank"},
				"staff_id":       {"s1"},
			},
			want: ReportParams{
				Period:    period.Year,
				Kind:      services.KindIncome,
				Dimension: report.DimensionPaymentMethod,
				Filters:   core.Filters{Category: "consulting", PaymentMethod: "bank", StaffID: "s1"},
			},
		},
		{
			name:  "control characters are stripped",
			query: url.Values{"category": {"rent\x00\x07"}},
			want: ReportParams{
				Period:    period.Month,
				Kind:      services.KindExpense,
				Dimension: report.DimensionCategory,
				Filters:   core.Filters{Category: "rent"},
			},
		},
		{name: "unknown period", query: url.Values{"period": {"decade"}}, wantErr: "period"},
		{name: "unknown kind", query: url.Values{"kind": {"transfer"}}, wantErr: "kind"},
		{name: "unknown dimension", query: url.Values{"dimension": {"supplier"}}, wantErr: "dimension"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReportParams(tt.query)
			if tt.wantErr != "" {
				var pe *ParamError
				if !errors.As(err, &pe) {
					t.Fatalf("expected ParamError, got %v", err)
				}
				if pe.Param != tt.wantErr {
					t.Errorf("Param = %q, want %q", pe.Param, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseReportParams() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseReportParams_UnknownPeriodWraps(t *testing.T) {
	_, err := ParseReportParams(url.Values{"period": {"decade"}})
	if !errors.Is(err, core.ErrUnknownPeriodType) {
		t.Errorf("expected ErrUnknownPeriodType in chain, got %v", err)
	}
}

func TestReportParamsKey(t *testing.T) {
	a, _ := ParseReportParams(url.Values{"category": {"rent"}})
	b, _ := ParseReportParams(url.Values{"category": {"fuel"}})
	c, _ := ParseReportParams(url.Values{"category": {"rent"}})
	if a.Key() == b.Key() {
		t.Error("different filters should produce different keys")
	}
	if a.Key() != c.Key() {
		t.Error("identical params should produce identical keys")
	}
}

func TestParseJobID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/j1/ledger", nil)
	req.SetPathValue("id", " j1 ")
	id, err := ParseJobID(req)
	if err != nil || id != "j1" {
		t.Errorf("ParseJobID() = %q, %v", id, err)
	}

	empty := httptest.NewRequest(http.MethodGet, "/api/jobs//ledger", nil)
	if _, err := ParseJobID(empty); err == nil {
		t.Error("expected error for missing id")
	}
}
