package core

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownPeriodType = errors.New("unknown period type")
	ErrJobNotFound       = errors.New("job not found")
	ErrInvalidFilters    = errors.New("invalid filters")
)

// MalformedDateError reports a record date that is missing or cannot be
// parsed. Aggregation recovers from it by skipping the record.
type MalformedDateError struct {
	Value string
}

func (e *MalformedDateError) Error() string {
	if e.Value == "" {
		return "malformed date: missing"
	}
	return fmt.Sprintf("malformed date: %q", e.Value)
}

// UpstreamFetchError wraps a record store failure. It is the only error the
// reporting path surfaces to callers.
type UpstreamFetchError struct {
	Op  string
	Err error
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("upstream fetch %s: %v", e.Op, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error {
	return e.Err
}

// InvalidPeriodError reports that period bounds cannot be computed.
type InvalidPeriodError struct {
	Now time.Time
}

func (e *InvalidPeriodError) Error() string {
	if e.Now.IsZero() {
		return "invalid period: reference instant is zero"
	}
	return fmt.Sprintf("invalid period: reference instant %s", e.Now.Format(time.RFC3339))
}

// IsUpstream reports whether err carries an UpstreamFetchError.
func IsUpstream(err error) bool {
	var ue *UpstreamFetchError
	return errors.As(err, &ue)
}
