package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-ID"
	headerClientID  = "X-Client-ID"
	maxHeaderID     = 64
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// requestID reuses a caller-supplied X-Request-ID when it looks sane and
// generates one otherwise.
func requestID(r *http.Request) string {
	if id := headerID(r, headerRequestID); id != "" {
		return id
	}
	return uuid.NewString()
}

// headerID returns a short printable identifier from header name, or "".
func headerID(r *http.Request, name string) string {
	id := sanitizeInput(r.Header.Get(name))
	if id == "" || len(id) > maxHeaderID || strings.ContainsAny(id, " \t\r\n") {
		return ""
	}
	return id
}
