// Package errors provides structured error handling for the bit bot.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Command errors
	CodeUnknownCommand Code = "UNKNOWN_COMMAND"
	CodeNotAuthorized  Code = "NOT_AUTHORIZED"
	CodeArgumentCount  Code = "ARGUMENT_COUNT"
	CodeInvalidAmount  Code = "INVALID_AMOUNT"
	CodeUnknownUser    Code = "UNKNOWN_USER"
	CodeInvalidTeam    Code = "INVALID_TEAM"
	CodeTagRequired    Code = "TAG_REQUIRED"

	// Ledger errors
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"

	// User errors
	CodeUserEmptyID  Code = "USER_EMPTY_ID"
	CodeUserBadRole  Code = "USER_INVALID_ROLE"
	CodeNegativeBits Code = "USER_NEGATIVE_BITS"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes for webhook responses.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeUnknownCommand,
		CodeArgumentCount,
		CodeInvalidAmount,
		CodeInvalidTeam,
		CodeTagRequired,
		CodeUserEmptyID,
		CodeUserBadRole,
		CodeNegativeBits:
		return http.StatusBadRequest

	// Unauthorized - caller lacks the required role or secret
	case CodeNotAuthorized:
		return http.StatusUnauthorized

	// Not found - missing records
	case CodeUnknownUser, CodeNotFound:
		return http.StatusNotFound

	// Conflict - the operation contradicts current ledger state
	case CodeInsufficientBalance:
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}
