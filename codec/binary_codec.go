package codec

import (
	"errors"
	"fmt"

	"calldata-rpc/message"
	"calldata-rpc/wire"
)

var errNotMessage = errors.New("codec: binary codec only handles *message.Message")

// BinaryCodec lays a Message out with the same primitives as call data:
//
//	Text(service_method) | Bytes(payload) | Text(error) | Text(kind)
type BinaryCodec struct{}

func (c *BinaryCodec) Encode(v any) ([]byte, error) {
	msg, ok := v.(*message.Message)
	if !ok {
		return nil, errNotMessage
	}
	size := 4*wire.LenSize + len(msg.ServiceMethod) + len(msg.Payload) + len(msg.Error) + len(msg.Kind)
	w := wire.NewWriter(size)
	w.WriteString(msg.ServiceMethod)
	w.WriteBytes(msg.Payload)
	w.WriteString(msg.Error)
	w.WriteString(msg.Kind)
	return w.Bytes(), nil
}

func (c *BinaryCodec) Decode(data []byte, v any) error {
	msg, ok := v.(*message.Message)
	if !ok {
		return errNotMessage
	}

	r := wire.NewReader(data)
	var err error
	if msg.ServiceMethod, err = r.ReadString(); err != nil {
		return fmt.Errorf("codec: service method: %w", err)
	}
	if msg.Payload, err = r.ReadBytes(); err != nil {
		return fmt.Errorf("codec: payload: %w", err)
	}
	if msg.Error, err = r.ReadString(); err != nil {
		return fmt.Errorf("codec: error: %w", err)
	}
	if msg.Kind, err = r.ReadString(); err != nil {
		return fmt.Errorf("codec: kind: %w", err)
	}
	if r.Remaining() != 0 {
		return fmt.Errorf("codec: %d trailing bytes", r.Remaining())
	}
	return nil
}

func (c *BinaryCodec) Type() CodecType {
	return CodecTypeBinary
}
