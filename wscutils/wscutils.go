// Package wscutils carries forward the teacher's structured
// error-message type (ErrorMessage: MsgID/ErrCode/Field/Vals) used
// throughout pdoflow wherever a failure needs a machine-readable shape
// rather than a bare error string -- the operator CLI's printNotFound
// builds one when a posting or job record does not exist. The HTTP-framework-specific half of the
// teacher's original package (gin binding, go-playground/validator
// struct-tag validation) has no surface in pdoflow, which exposes no web
// service of its own; see DESIGN.md for why those two dependencies were
// dropped rather than carried forward unused.
package wscutils

import "encoding/json"

// Response represents the standard structure of a response of the web service.
type Response struct {
	Status   string         `json:"status"`
	Data     any            `json:"data"`
	Messages []ErrorMessage `json:"messages"`
}

// ErrorMessage defines the format of error part of the standard response object.
type ErrorMessage struct {
	MsgID   int      `json:"msgid"`
	ErrCode string   `json:"errcode"`
	Field   string   `json:"field,omitempty"`
	Vals    []string `json:"vals,omitempty"`
}

// BuildErrorMessage generates an ErrorMessage which includes the required
// validation error information such as code, msgcode. It encapsulates the
// process of building an error message for consistency.
func BuildErrorMessage(msgid int, errcode string, fieldName string, vals ...string) ErrorMessage {
	return ErrorMessage{
		MsgID:   msgid,
		ErrCode: errcode,
		Field:   fieldName,
		Vals:    vals,
	}
}

// NewResponse is a helper function to create a new web service response and
// any error messages that might need to be sent back to the client.
func NewResponse(status string, data any, messages []ErrorMessage) *Response {
	return &Response{
		Status:   status,
		Data:     data,
		Messages: messages,
	}
}

// NewErrorResponse simplifies the process of creating a standard error
// response with a single error message.
func NewErrorResponse(msgid int, errcode string) *Response {
	return NewResponse(ErrorStatus, nil, []ErrorMessage{BuildErrorMessage(msgid, errcode, "")})
}

// NewSuccessResponse simplifies the process of creating a standard success response.
func NewSuccessResponse(data any) *Response {
	return NewResponse(SuccessStatus, data, nil)
}

// Optional is a generic type that can distinguish between non-existent
// JSON fields and null values.
//
//  1. Present in the JSON and had a value (Present = true, Null = false)
//  2. Present in the JSON but was null (Present = true, Null = true)
//  3. Not present in the JSON at all (Present = false)
type Optional[T any] struct {
	Value   T
	Present bool
	Null    bool
}

// NewOptional wraps a present, non-null value.
func NewOptional[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Present: true}
}

// NewOptionalNull returns a present-but-null Optional.
func NewOptionalNull[T any]() Optional[T] {
	return Optional[T]{Present: true, Null: true}
}

// NewOptionalAbsent returns an Optional representing a field that was
// never present at all.
func NewOptionalAbsent[T any]() Optional[T] {
	return Optional[T]{}
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		o.Present = true
		o.Null = true
		return nil
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}

	o.Value = value
	o.Present = true
	o.Null = false
	return nil
}

// MarshalJSON implements the json.Marshaler interface: an absent or
// explicitly-null Optional marshals to the JSON null literal, a present
// one marshals its wrapped value.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Present || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// IsZero reports whether o is absent, the signal encoding/json's `omitzero`
// tag (Go 1.24+) uses to decide whether to emit the field at all. A
// present-but-null Optional is NOT zero: it is still emitted, as `null`.
func (o Optional[T]) IsZero() bool {
	return !o.Present
}

// Get returns the Value and true if the Optional has a defined value, or
// the zero value of T and false if it doesn't have a value or is null.
func (o Optional[T]) Get() (T, bool) {
	if o.Present && !o.Null {
		return o.Value, true
	}
	var zero T
	return zero, false
}
