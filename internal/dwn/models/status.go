package models

import "net/http"

// Status is the HTTP-style reply status every DWN operation returns.
type Status struct {
	Code   int    `json:"code"`
	Detail string `json:"detail"`
}

// StatusOf builds a Status using the standard reason phrase for code.
func StatusOf(code int) Status {
	return Status{Code: code, Detail: http.StatusText(code)}
}

// OK reports whether the status is in the 2xx range.
func (s Status) OK() bool {
	return s.Code >= 200 && s.Code < 300
}

var (
	StatusOK       = StatusOf(http.StatusOK)
	StatusAccepted = StatusOf(http.StatusAccepted)
)
