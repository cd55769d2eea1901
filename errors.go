// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import "fmt"

// Standard JSON-RPC 2.0 error codes.
const (
	// ErrorCodeJSONParse indicates an invalid JSON payload.
	ErrorCodeJSONParse = -32700
	// ErrorCodeInvalidRequest indicates a request payload validation error.
	ErrorCodeInvalidRequest = -32600
	// ErrorCodeMethodNotFound indicates the method does not exist.
	ErrorCodeMethodNotFound = -32601
	// ErrorCodeInvalidParams indicates invalid method parameters.
	ErrorCodeInvalidParams = -32602
	// ErrorCodeInternal indicates an internal server error.
	ErrorCodeInternal = -32603
)

// A2A specific error codes.
const (
	// ErrorCodeTaskNotFound indicates the specified task ID was not found.
	ErrorCodeTaskNotFound = -32001
	// ErrorCodeTaskNotCancelable indicates the task is in a terminal state
	// and cannot be canceled.
	ErrorCodeTaskNotCancelable = -32002
	// ErrorCodeTaskNotActionable indicates the task is in a terminal state
	// and no longer accepts messages.
	ErrorCodeTaskNotActionable = -32003
	// ErrorCodeUnsupportedOperation indicates the requested operation is not
	// advertised by the agent card.
	ErrorCodeUnsupportedOperation = -32004
	// ErrorCodeStreamOverflow indicates a subscriber fell too far behind and
	// its stream was dropped.
	ErrorCodeStreamOverflow = -32005
	// ErrorCodeUnavailable indicates transient infrastructure failure
	// (broker or store unreachable); the request may be retried.
	ErrorCodeUnavailable = -32006
)

// Error is the interface implemented by all protocol errors. Code returns
// the JSON-RPC error code the error maps to on the wire.
type Error interface {
	error
	Code() int
}

// TaskNotFoundError indicates that the requested task ID is unknown.
type TaskNotFoundError struct {
	TaskID string
}

// Error implements the error interface.
func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// Code implements [Error].
func (e *TaskNotFoundError) Code() int { return ErrorCodeTaskNotFound }

// SessionNotFoundError indicates that the requested session ID is unknown.
type SessionNotFoundError struct {
	SessionID string
}

// Error implements the error interface.
func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.SessionID)
}

// Code implements [Error].
func (e *SessionNotFoundError) Code() int { return ErrorCodeTaskNotFound }

// TaskNotCancelableError indicates a cancel request against a task already
// in a completed or failed state.
type TaskNotCancelableError struct {
	TaskID string
	State  TaskState
}

// Error implements the error interface.
func (e *TaskNotCancelableError) Error() string {
	return fmt.Sprintf("task %s cannot be canceled: already in state %s", e.TaskID, e.State)
}

// Code implements [Error].
func (e *TaskNotCancelableError) Code() int { return ErrorCodeTaskNotCancelable }

// TaskNotActionableError indicates a message sent to a task in a terminal
// state; a new task must be created instead.
type TaskNotActionableError struct {
	TaskID string
	State  TaskState
}

// Error implements the error interface.
func (e *TaskNotActionableError) Error() string {
	return fmt.Sprintf("task %s is not actionable: already in state %s", e.TaskID, e.State)
}

// Code implements [Error].
func (e *TaskNotActionableError) Code() int { return ErrorCodeTaskNotActionable }

// StreamOverflowError indicates a subscriber that could not keep up with
// event production and was disconnected.
type StreamOverflowError struct {
	TaskID string
	Index  int64
}

// Error implements the error interface.
func (e *StreamOverflowError) Error() string {
	return fmt.Sprintf("stream overflow on task %s at index %d: subscriber too slow", e.TaskID, e.Index)
}

// Code implements [Error].
func (e *StreamOverflowError) Code() int { return ErrorCodeStreamOverflow }

// UnsupportedOperationError indicates an operation the agent card does not
// advertise.
type UnsupportedOperationError struct {
	Operation string
}

// Error implements the error interface.
func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("operation not supported: %s", e.Operation)
}

// Code implements [Error].
func (e *UnsupportedOperationError) Code() int { return ErrorCodeUnsupportedOperation }

// UnavailableError indicates a transient infrastructure failure distinct
// from task-level failure.
type UnavailableError struct {
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("temporarily unavailable: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("temporarily unavailable: %s", e.Detail)
}

// Unwrap returns the underlying cause.
func (e *UnavailableError) Unwrap() error { return e.Err }

// Code implements [Error].
func (e *UnavailableError) Code() int { return ErrorCodeUnavailable }

// JSONParseError indicates an unparsable request payload.
type JSONParseError struct {
	Detail string
}

// Error implements the error interface.
func (e *JSONParseError) Error() string {
	return fmt.Sprintf("JSON parse error: %s", e.Detail)
}

// Code implements [Error].
func (e *JSONParseError) Code() int { return ErrorCodeJSONParse }

// InvalidRequestError indicates a structurally invalid JSON-RPC request.
type InvalidRequestError struct {
	Detail string
}

// Error implements the error interface.
func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Detail)
}

// Code implements [Error].
func (e *InvalidRequestError) Code() int { return ErrorCodeInvalidRequest }

// MethodNotFoundError indicates an unknown JSON-RPC method.
type MethodNotFoundError struct {
	Method string
}

// Error implements the error interface.
func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("method not found: %s", e.Method)
}

// Code implements [Error].
func (e *MethodNotFoundError) Code() int { return ErrorCodeMethodNotFound }

// InvalidParamsError indicates invalid method parameters.
type InvalidParamsError struct {
	Detail string
}

// Error implements the error interface.
func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("invalid params: %s", e.Detail)
}

// Code implements [Error].
func (e *InvalidParamsError) Code() int { return ErrorCodeInvalidParams }

// InternalError indicates an unexpected server-side failure.
type InternalError struct {
	Detail string
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s", e.Detail)
}

// Code implements [Error].
func (e *InternalError) Code() int { return ErrorCodeInternal }
