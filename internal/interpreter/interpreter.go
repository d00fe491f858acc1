// Package interpreter turns gateway response fields into a payment outcome.
package interpreter

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	FieldResponseCode    = "responseCode"
	FieldResponseMessage = "responseMessage"
	// FieldContinuationURL marks a response that needs further processing
	// on the gateway side, such as a 3-D Secure challenge.
	FieldContinuationURL = "threeDSURL"

	DefaultMessage = "Unknown gateway response"
)

var ErrMalformedResponse = errors.New("malformed gateway response")

type MalformedResponseError struct {
	Field string
	Value string
}

func (e *MalformedResponseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("malformed gateway response: missing %s", e.Field)
	}
	return fmt.Sprintf("malformed gateway response: %s %q is not numeric", e.Field, e.Value)
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

// Response is a flat set of gateway response fields.
type Response map[string]string

// FromValues flattens form values, keeping the first value of each key.
func FromValues(values url.Values) Response {
	r := make(Response, len(values))
	for k, v := range values {
		if len(v) > 0 {
			r[k] = v[0]
		}
	}
	return r
}

// Code returns the numeric responseCode.
func (r Response) Code() (int, error) {
	raw, ok := r[FieldResponseCode]
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, &MalformedResponseError{Field: FieldResponseCode}
	}
	code, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &MalformedResponseError{Field: FieldResponseCode, Value: raw}
	}
	return code, nil
}

func (r Response) Message() string {
	if msg := strings.TrimSpace(r[FieldResponseMessage]); msg != "" {
		return msg
	}
	return DefaultMessage
}

func (r Response) NeedsContinuation() bool {
	return strings.TrimSpace(r[FieldContinuationURL]) != ""
}

type Kind int

const (
	Success Kind = iota + 1
	Failure
	Unresolved
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Unresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// Outcome is the verdict for one payment attempt. Code and Message are only
// meaningful for Success and Failure.
type Outcome struct {
	Kind    Kind
	Code    int
	Message string
}

// Interpret classifies a response. It has no side effects, so the same
// fields always yield the same outcome.
func Interpret(fields Response) (Outcome, error) {
	if fields.NeedsContinuation() {
		return Outcome{Kind: Unresolved}, nil
	}

	code, err := fields.Code()
	if err != nil {
		return Outcome{}, err
	}

	if code == 0 {
		return Outcome{Kind: Success, Code: code, Message: fields.Message()}, nil
	}
	return Outcome{Kind: Failure, Code: code, Message: fields.Message()}, nil
}
