package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Reason codes for blocked requests. These are the exact strings the
// browser-facing API emits.
const (
	ReasonBadSessionID    = "BAD_SESSION_ID"
	ReasonRejectedRequest = "REJECTED_REQUEST"
	ReasonTokenExpired    = "TOKEN_EXPIRED"
	ReasonBadEmail        = "BAD_EMAIL"
	ReasonUnknown         = "UNKNOWN"
)

// UnsupportedTokenTypeReason builds the dynamic rejection reason for a
// token_type outside AllowedTokenTypes.
func UnsupportedTokenTypeReason(tokenType string) string {
	return fmt.Sprintf(`Requested token_type %q not one of ["access_token","id_token","email"]`, tokenType)
}

// Outcome is the single terminal result of a token request: either a
// granted token field or a typed rejection. Outcomes are constructed fresh
// per request and never cached.
type Outcome struct {
	HTTPStatus int
	// Grant fields, set when Blocked is false.
	TokenType string
	Value     string
	// Rejection reason, set when Blocked is true.
	Reason  string
	Blocked bool
}

// Grant produces a success outcome carrying exactly one token field.
func Grant(tokenType, value string) Outcome {
	return Outcome{HTTPStatus: http.StatusOK, TokenType: tokenType, Value: value}
}

// Block produces a rejection outcome with the given HTTP status and reason
// code.
func Block(httpStatus int, reason string) Outcome {
	return Outcome{HTTPStatus: httpStatus, Reason: reason, Blocked: true}
}

// blockedBody is the wire shape of every rejection.
type blockedBody struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Write renders the outcome: the bare token value on success, or
// {"status":"BLOCKED","reason":<code>} on rejection.
func (o Outcome) Write(w http.ResponseWriter) {
	if o.Blocked {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(o.HTTPStatus)
		// Best effort, error from Encode is not typically handled here.
		_ = json.NewEncoder(w).Encode(blockedBody{Status: "BLOCKED", Reason: o.Reason})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(o.HTTPStatus)
	_, _ = w.Write([]byte(o.Value))
}
