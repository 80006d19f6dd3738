package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Bateristico/agent-architect/internal/orchestration"
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Notification represents a server-initiated JSON-RPC 2.0 notification (no ID).
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Error represents a JSON-RPC 2.0 error.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Engine error codes.
const (
	CodeNotFound         = -32000
	CodeValidationFailed = -32001
	CodeRunFailed        = -32002
	CodeRunCanceled      = -32003
)

// Notifications the server pushes to the client that started a background run.
const (
	NotifyEstimateProgress = "estimate.progress"
	NotifyEstimateFinished = "estimate.finished"
)

// EstimateProgressParams reports trials completed by a background run.
type EstimateProgressParams struct {
	RunID       string `json:"run_id"`
	LevelID     string `json:"level_id"`
	Trial       int    `json:"trial"`
	TotalTrials int    `json:"total_trials"`
}

// EstimateFinishedParams reports the final status of a background run.
type EstimateFinishedParams struct {
	RunID     string  `json:"run_id"`
	Status    string  `json:"status"`
	MeanTotal float64 `json:"mean_total,omitempty"`
	Error     string  `json:"error,omitempty"`
}

func ErrParseError(data any) *Error {
	return &Error{Code: CodeParseError, Message: "Parse error", Data: data}
}

func ErrInvalidRequest(data any) *Error {
	return &Error{Code: CodeInvalidRequest, Message: "Invalid request", Data: data}
}

func ErrMethodNotFound(method string) *Error {
	return &Error{Code: CodeMethodNotFound, Message: "Method not found", Data: method}
}

func ErrInvalidParams(data any) *Error {
	return &Error{Code: CodeInvalidParams, Message: "Invalid params", Data: data}
}

func ErrInternalError(data any) *Error {
	return &Error{Code: CodeInternalError, Message: "Internal error", Data: data}
}

func ErrNotFound(what string) *Error {
	return &Error{Code: CodeNotFound, Message: "Not found", Data: what}
}

func ErrValidationFailed(data any) *Error {
	return &Error{Code: CodeValidationFailed, Message: "Validation failed", Data: data}
}

func ErrRunFailed(data any) *Error {
	return &Error{Code: CodeRunFailed, Message: "Run failed", Data: data}
}

func ErrRunCanceled(data any) *Error {
	return &Error{Code: CodeRunCanceled, Message: "Run canceled", Data: data}
}

// runError maps an engine error onto a response error.
func runError(err error) *Error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrRunCanceled(err.Error())
	case errors.Is(err, orchestration.ErrNoScenarios):
		return ErrValidationFailed(err.Error())
	default:
		return ErrRunFailed(err.Error())
	}
}
