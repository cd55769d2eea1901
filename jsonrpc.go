// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"strconv"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// A2A RPC method names.
const (
	// MethodTasksSend is the method name for sending a message to a task.
	MethodTasksSend = "tasks/send"
	// MethodTasksSendSubscribe is the method name for sending a message and
	// subscribing to the task's event stream.
	MethodTasksSendSubscribe = "tasks/sendSubscribe"
	// MethodTasksGet is the method name for getting a task snapshot.
	MethodTasksGet = "tasks/get"
	// MethodTasksCancel is the method name for canceling a task.
	MethodTasksCancel = "tasks/cancel"
	// MethodTasksResubscribe is the method name for resubscribing to an
	// existing task's event stream from a cursor.
	MethodTasksResubscribe = "tasks/resubscribe"
)

// ID represents the unique identifier for JSON-RPC request/response
// correlation. It holds a string, a number, or nothing.
type ID struct {
	value any
}

// NewID creates an ID from a string or numeric value.
func NewID(v any) ID { return ID{value: v} }

// IsZero reports whether the ID is absent.
func (id ID) IsZero() bool { return id.value == nil }

// String renders the ID for logging.
func (id ID) String() string {
	switch v := id.value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case nil:
		return ""
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	id.value = v
	return nil
}

// JSONRPCMessage is the base structure shared by all JSON-RPC 2.0 messages.
type JSONRPCMessage struct {
	// JSONRPC version, always "2.0".
	JSONRPC string `json:"jsonrpc"`
	// ID correlates a response with its request.
	ID ID `json:"id,omitzero"`
}

// NewJSONRPCMessage creates a new [JSONRPCMessage] with the given id.
func NewJSONRPCMessage(id any) JSONRPCMessage {
	return JSONRPCMessage{JSONRPC: "2.0", ID: NewID(id)}
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPCMessage

	// Method identifies the operation to perform.
	Method string `json:"method"`
	// Params contains raw parameters for the method.
	Params jsontext.Value `json:"params,omitzero"`
}

// Validate ensures the request is structurally a JSON-RPC 2.0 call.
func (r *JSONRPCRequest) Validate() error {
	if r.JSONRPC != "2.0" {
		return &InvalidRequestError{Detail: "jsonrpc version must be 2.0"}
	}
	if r.Method == "" {
		return &InvalidRequestError{Detail: "method cannot be empty"}
	}
	return nil
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	// Code is the error code.
	Code int `json:"code"`
	// Message is a short description of the error.
	Message string `json:"message"`
	// Data contains optional additional error details.
	Data any `json:"data,omitzero"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response. Result and Error are
// mutually exclusive.
type JSONRPCResponse struct {
	JSONRPCMessage

	Result any           `json:"result,omitzero"`
	Error  *JSONRPCError `json:"error,omitzero"`
}

// NewSuccessResponse creates a response carrying a result.
func NewSuccessResponse(id ID, result any) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: "2.0", ID: id},
		Result:         result,
	}
}

// NewErrorResponse creates a response carrying an error, translating typed
// protocol errors into their wire codes. Unknown errors map to an internal
// error without leaking detail.
func NewErrorResponse(id ID, err error) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPCMessage: JSONRPCMessage{JSONRPC: "2.0", ID: id},
		Error:          ToJSONRPCError(err),
	}
}

// ToJSONRPCError converts an error into a JSON-RPC error object.
func ToJSONRPCError(err error) *JSONRPCError {
	var perr Error
	if errors.As(err, &perr) {
		return &JSONRPCError{Code: perr.Code(), Message: perr.Error()}
	}
	return &JSONRPCError{Code: ErrorCodeInternal, Message: "internal error"}
}

// DecodeRequest parses a raw JSON-RPC request body.
func DecodeRequest(data []byte) (*JSONRPCRequest, error) {
	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &JSONParseError{Detail: err.Error()}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// EncodeResponse serializes a JSON-RPC response body.
func EncodeResponse(resp *JSONRPCResponse) ([]byte, error) {
	return json.Marshal(resp)
}

// DecodeParams parses request params into the given typed value.
func DecodeParams(req *JSONRPCRequest, v any) error {
	if len(req.Params) == 0 {
		return &InvalidParamsError{Detail: "params cannot be empty"}
	}
	if err := json.Unmarshal(req.Params, v); err != nil {
		return &InvalidParamsError{Detail: err.Error()}
	}
	return nil
}
