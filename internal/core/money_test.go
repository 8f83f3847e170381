package core

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCoerceAmount(t *testing.T) {
	cases := []struct {
		in  any
		out string
		ok  bool
	}{
		{12.5, "12.5", true},
		{float32(2.25), "2.25", true},
		{int(7), "7", true},
		{int64(-3), "-3", true},
		{uint64(9), "9", true},
		{json.Number("100.00"), "100", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"1,234.50", "1234.5", true},
		{"1,234", "1234", true},
		{"1,234,567", "1234567", true},
		{"-2,500", "-2500", true},
		{"1.234,50", "1234.5", true},
		{"1.234.567", "1234567", true},
		{"12,5", "12.5", true},
		{"12,3456", "0", false},
		{"1,23,4", "0", false},
		{" $ 42 ", "42", true},
		{"€5", "5", true},
		{[]byte("3.10"), "3.1", true},
		{decimal.NewFromInt(4), "4", true},
		{nil, "0", false},
		{"", "0", false},
		{"abc", "0", false},
		{"1.2.3", "0", false},
		{math.NaN(), "0", false},
		{math.Inf(1), "0", false},
		{struct{}{}, "0", false},
	}
	for _, tc := range cases {
		got, ok := CoerceAmount(tc.in)
		if ok != tc.ok {
			t.Fatalf("%#v expected ok=%v, got %v", tc.in, tc.ok, ok)
		}
		if !got.Equal(decimal.RequireFromString(tc.out)) {
			t.Fatalf("%#v expected %s, got %s", tc.in, tc.out, got)
		}
	}
}

func TestSameAmount(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"100.00", "100", true},
		{"100.004", "100.00", true},
		{"100.01", "100.00", false}, // tolerance is strict
		{"50", "75", false},
	}
	for _, tc := range cases {
		got := SameAmount(decimal.RequireFromString(tc.a), decimal.RequireFromString(tc.b))
		if got != tc.want {
			t.Fatalf("SameAmount(%s, %s) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
