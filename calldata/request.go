package calldata

import (
	"encoding/json"
	"fmt"

	"calldata-rpc/codecerr"
)

// Argument is one typed literal of a Request.
type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Request is the JSON description of a call.
type Request struct {
	MethodName string     `json:"method_name"`
	Arguments  []Argument `json:"arguments"`
}

// ParseRequest decodes a JSON Request. method_name must be a string and
// arguments an array; entries without a string type and value are dropped.
func ParseRequest(data []byte) (*Request, error) {
	var raw struct {
		MethodName *string            `json:"method_name"`
		Arguments  *[]json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, invalidRequest(err, "malformed JSON")
	}
	if raw.MethodName == nil {
		return nil, invalidRequest(nil, "method_name must be a string")
	}
	if raw.Arguments == nil {
		return nil, invalidRequest(nil, "arguments must be an array")
	}

	req := &Request{MethodName: *raw.MethodName}
	for _, entry := range *raw.Arguments {
		var arg struct {
			Type  *string `json:"type"`
			Value *string `json:"value"`
		}
		if json.Unmarshal(entry, &arg) != nil || arg.Type == nil || arg.Value == nil {
			continue
		}
		req.Arguments = append(req.Arguments, Argument{Type: *arg.Type, Value: *arg.Value})
	}
	return req, nil
}

func invalidRequest(cause error, detail string) error {
	return codecerr.New(codecerr.PhaseParse, codecerr.KindInvalidEnvelope).
		Cause(cause).
		Detail("%s", detail).
		Build()
}

// Encode builds the call described by req and returns the call-data and
// argument-list buffers.
func (req *Request) Encode(opts ...Option) (data, args []byte, err error) {
	b := NewBuilder(opts...)
	for i, arg := range req.Arguments {
		if err := b.InsertFromStr(arg.Type, arg.Value); err != nil {
			return nil, nil, fmt.Errorf("argument %d: %w", i, err)
		}
	}
	data, args = b.MakeData(req.MethodName)
	return data, args, nil
}

// Build parses a JSON request and returns both buffers as base64url text.
func Build(js []byte, opts ...Option) (data, args string, err error) {
	req, err := ParseRequest(js)
	if err != nil {
		return "", "", err
	}
	d, a, err := req.Encode(opts...)
	if err != nil {
		return "", "", err
	}
	return EncodeText(d), EncodeText(a), nil
}
