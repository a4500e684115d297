// Package api exposes the call-data codec as an RPC service.
//
// The service registers under the name "Codec":
//
//	Codec.Build     method name + typed literals -> call data
//	Codec.Callback  return envelope + tag        -> display string
//	Codec.Inspect   call data [+ tags]           -> parsed call
//	Codec.Tags                                    -> tag vocabulary
package api

import (
	"calldata-rpc/calldata"
	"calldata-rpc/typetag"
)

// ServiceName is the name Codec registers under.
const ServiceName = "Codec"

// BuildArgs describes a call: the method name and its typed literals.
type BuildArgs calldata.Request

// BuildReply holds both buffers as unpadded base64url.
type BuildReply struct {
	Data      string `json:"data"`
	Arguments string `json:"arguments"`
}

type CallbackArgs struct {
	Value string `json:"value"` // base64url return envelope
	Type  string `json:"type"`
}

type CallbackReply struct {
	Display string `json:"display"`
}

type InspectArgs struct {
	Data  string   `json:"data"`            // base64url call data
	Types []string `json:"types,omitempty"` // tag of each argument, optional
}

type InspectReply struct {
	Version    uint32   `json:"version"`
	MethodName string   `json:"method_name"`
	Arguments  []string `json:"arguments"` // base64url, one per argument
	Display    string   `json:"display"`
}

type TagsArgs struct{}

type TagsReply struct {
	Tags []string `json:"tags"`
}

// Codec implements the service. Errors are *codecerr.Error values, so
// their kind reaches the client.
type Codec struct {
	strict bool
}

// NewCodec returns the service. With strict set, unknown tags are errors.
func NewCodec(strict bool) *Codec {
	return &Codec{strict: strict}
}

func (c *Codec) builderOptions() []calldata.Option {
	if c.strict {
		return []calldata.Option{calldata.WithStrictTags()}
	}
	return nil
}

func (c *Codec) Build(args *BuildArgs, reply *BuildReply) error {
	req := calldata.Request(*args)
	data, list, err := req.Encode(c.builderOptions()...)
	if err != nil {
		return err
	}
	reply.Data = calldata.EncodeText(data)
	reply.Arguments = calldata.EncodeText(list)
	return nil
}

// BuildJSON builds the call described by a JSON request document. Malformed
// argument entries are skipped; a missing method_name or arguments field is
// an invalid_envelope error.
func (c *Codec) BuildJSON(js []byte) (*BuildReply, error) {
	data, list, err := calldata.Build(js, c.builderOptions()...)
	if err != nil {
		return nil, err
	}
	return &BuildReply{Data: data, Arguments: list}, nil
}

func (c *Codec) Callback(args *CallbackArgs, reply *CallbackReply) error {
	display, err := calldata.FromCallback(args.Value, args.Type, calldata.DecodeOptions{Strict: c.strict})
	if err != nil {
		return err
	}
	reply.Display = display
	return nil
}

func (c *Codec) Inspect(args *InspectArgs, reply *InspectReply) error {
	raw, err := calldata.DecodeText(args.Data)
	if err != nil {
		return err
	}
	cd, err := calldata.ParseCallData(raw)
	if err != nil {
		return err
	}
	display, err := cd.Display(args.Types...)
	if err != nil {
		return err
	}

	reply.Version = cd.Version
	reply.MethodName = cd.Envelope.MethodName
	reply.Arguments = make([]string, len(cd.Envelope.Arguments))
	for i, arg := range cd.Envelope.Arguments {
		reply.Arguments[i] = calldata.EncodeText(arg)
	}
	reply.Display = display
	return nil
}

func (c *Codec) Tags(_ *TagsArgs, reply *TagsReply) error {
	reply.Tags = typetag.Vocabulary()
	return nil
}
