// Package core provides the domain records shared by the reporting engine.
//
// This file contains the single numeric coercion boundary. Upstream records
// arrive with amounts typed inconsistently (numbers, numeric strings, nulls);
// record store adapters call CoerceAmount exactly once while materializing
// records, so aggregation code only ever sees decimal.Decimal values.
package core

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountTolerance is the largest difference under which two amounts are
// considered the same payment.
var AmountTolerance = decimal.New(1, -2)

// CoerceAmount converts a loosely typed amount to a decimal.
//
// It accepts numeric Go types, json.Number, decimal values and numeric
// strings. Strings may carry surrounding whitespace, a leading currency
// symbol, thousands separators ("1,234", "1,234.50", "1.234,50") or a
// decimal comma with one or two digits ("12,34"). A lone comma followed by
// three digits is a thousands separator.
// Anything else (nil, NaN, infinities, garbage text) coerces to zero and ok
// is false.
//
// Examples:
//
//	CoerceAmount(12.5)       -> 12.5, true
//	CoerceAmount("1,234.50") -> 1234.50, true
//	CoerceAmount("1,234")    -> 1234, true
//	CoerceAmount("12,34")    -> 12.34, true
//	CoerceAmount("n/a")      -> 0, false
func CoerceAmount(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return x, true
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero, false
		}
		return *x, true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(x), true
	case float32:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat32(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int32:
		return decimal.NewFromInt32(x), true
	case int64:
		return decimal.NewFromInt(x), true
	case uint:
		return decimal.NewFromUint64(uint64(x)), true
	case uint32:
		return decimal.NewFromUint64(uint64(x)), true
	case uint64:
		return decimal.NewFromUint64(x), true
	case json.Number:
		return parseAmountString(string(x))
	case string:
		return parseAmountString(x)
	case []byte:
		return parseAmountString(string(x))
	default:
		return decimal.Zero, false
	}
}

// Amount is CoerceAmount without the ok flag.
func Amount(v any) decimal.Decimal {
	d, _ := CoerceAmount(v)
	return d
}

var (
	commaGrouped = regexp.MustCompile(`^[-+]?\d{1,3}(,\d{3})+$`)
	dotGrouped   = regexp.MustCompile(`^[-+]?\d{1,3}(\.\d{3}){2,}$`)
	commaDecimal = regexp.MustCompile(`^[-+]?\d*,\d{1,2}$`)
)

func parseAmountString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$€£ ")
	if s == "" {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, " ", "")

	lastDot, lastComma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		// Both present: the rightmost one is the decimal mark.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case commaGrouped.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case commaDecimal.MatchString(s):
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0:
		return decimal.Zero, false
	case dotGrouped.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// SameAmount reports whether two amounts differ by strictly less than
// AmountTolerance.
func SameAmount(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(AmountTolerance)
}
