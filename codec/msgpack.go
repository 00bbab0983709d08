package codec

import (
	"bytes"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgPackContentType is the Content-Type of MessagePack bodies.
const MsgPackContentType = "application/msgpack"

// MsgPack is the Codec for application/msgpack bodies. Struct fields use
// their json tags, so a value has the same member names under every codec.
// Object members keep their declared order.
type MsgPack struct{}

var _ Codec = MsgPack{}

func (MsgPack) ContentType() string { return MsgPackContentType }

func newMsgPackEncoder(buf *bytes.Buffer) *msgpack.Encoder {
	enc := msgpack.NewEncoder(buf)
	enc.SetCustomStructTag("json")
	return enc
}

func newMsgPackDecoder(data []byte) *msgpack.Decoder {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec
}

func (MsgPack) Marshal(v any, t reflect.Type) ([]byte, error) {
	if err := checkAssignable(v, t); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := newMsgPackEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgPack) Unmarshal(data []byte, t reflect.Type) (any, error) {
	if t == nil {
		return nil, ErrNilType
	}
	p := reflect.New(t)
	if err := newMsgPackDecoder(data).Decode(p.Interface()); err != nil {
		return nil, err
	}
	return p.Elem().Interface(), nil
}

func (MsgPack) MarshalObject(members []Member) ([]byte, error) {
	var buf bytes.Buffer
	enc := newMsgPackEncoder(&buf)
	if err := enc.EncodeMapLen(len(members)); err != nil {
		return nil, err
	}
	for _, m := range members {
		if err := enc.EncodeString(m.Name); err != nil {
			return nil, err
		}
		if err := enc.Encode(msgpackRaw(m.Value)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (MsgPack) UnmarshalObject(data []byte) ([]Member, error) {
	dec := newMsgPackDecoder(data)
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	members := make([]Member, 0, max(n, 0))
	for range n {
		name, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		raw, err := dec.DecodeRaw()
		if err != nil {
			return nil, err
		}
		members = append(members, Member{Name: name, Value: raw})
	}
	return members, nil
}

func (MsgPack) MarshalList(items [][]byte) ([]byte, error) {
	var buf bytes.Buffer
	enc := newMsgPackEncoder(&buf)
	if err := enc.EncodeArrayLen(len(items)); err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := enc.Encode(msgpackRaw(item)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (MsgPack) UnmarshalList(data []byte) ([][]byte, error) {
	dec := newMsgPackDecoder(data)
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	items := make([][]byte, 0, max(n, 0))
	for range n {
		raw, err := dec.DecodeRaw()
		if err != nil {
			return nil, err
		}
		items = append(items, raw)
	}
	return items, nil
}

// msgpackNil is the MessagePack encoding of nil.
var msgpackNil = msgpack.RawMessage{0xc0}

func msgpackRaw(b []byte) msgpack.RawMessage {
	if len(b) == 0 {
		return msgpackNil
	}
	return b
}
