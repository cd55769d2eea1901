// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-json-experiment/json"
)

func TestDecodeRequest(t *testing.T) {
	body := []byte(`{"jsonrpc":"2.0","id":"req-1","method":"tasks/send","params":{"message":{"role":"user","parts":[{"kind":"text","text":"hi"}]}}}`)

	req, err := DecodeRequest(body)
	if err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if req.Method != MethodTasksSend {
		t.Errorf("expected method %q, got %q", MethodTasksSend, req.Method)
	}
	if req.ID.String() != "req-1" {
		t.Errorf("expected id req-1, got %q", req.ID.String())
	}

	var params TaskSendParams
	if err := DecodeParams(req, &params); err != nil {
		t.Fatalf("decode params: %v", err)
	}
	if err := params.Validate(); err != nil {
		t.Errorf("expected valid params, got %v", err)
	}
}

func TestDecodeRequestErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed JSON", `{"jsonrpc":`, ErrorCodeJSONParse},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"tasks/get"}`, ErrorCodeInvalidRequest},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, ErrorCodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRequest([]byte(tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			var perr Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected protocol error, got %T", err)
			}
			if perr.Code() != tt.code {
				t.Errorf("expected code %d, got %d", tt.code, perr.Code())
			}
		})
	}
}

func TestToJSONRPCError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{&TaskNotFoundError{TaskID: "t1"}, ErrorCodeTaskNotFound},
		{&TaskNotCancelableError{TaskID: "t1", State: TaskStateCompleted}, ErrorCodeTaskNotCancelable},
		{&TaskNotActionableError{TaskID: "t1", State: TaskStateFailed}, ErrorCodeTaskNotActionable},
		{&UnsupportedOperationError{Operation: MethodTasksSendSubscribe}, ErrorCodeUnsupportedOperation},
		{&StreamOverflowError{TaskID: "t1", Index: 42}, ErrorCodeStreamOverflow},
		{&UnavailableError{Detail: "broker down"}, ErrorCodeUnavailable},
		{fmt.Errorf("wrapped: %w", &TaskNotFoundError{TaskID: "t2"}), ErrorCodeTaskNotFound},
	}
	for _, tt := range tests {
		got := ToJSONRPCError(tt.err)
		if got.Code != tt.code {
			t.Errorf("ToJSONRPCError(%v): expected code %d, got %d", tt.err, tt.code, got.Code)
		}
	}
}

func TestToJSONRPCErrorHidesUnknownDetail(t *testing.T) {
	got := ToJSONRPCError(errors.New("sql: connection refused at 10.0.0.3"))
	if got.Code != ErrorCodeInternal {
		t.Fatalf("expected internal code, got %d", got.Code)
	}
	if got.Message != "internal error" {
		t.Errorf("internal cause leaked to the wire: %q", got.Message)
	}
}

func TestEncodeResponseRoundTrip(t *testing.T) {
	resp := NewErrorResponse(NewID("r1"), &TaskNotFoundError{TaskID: "missing"})
	data, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("encode response: %v", err)
	}

	var decoded JSONRPCResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decoded.Error == nil {
		t.Fatal("expected error object")
	}
	if decoded.Error.Code != ErrorCodeTaskNotFound {
		t.Errorf("expected code %d, got %d", ErrorCodeTaskNotFound, decoded.Error.Code)
	}
	if decoded.ID.String() != "r1" {
		t.Errorf("expected id r1, got %q", decoded.ID.String())
	}
}
