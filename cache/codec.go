package cache

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns values into the bytes stored by a Remote and back.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec stores values as JSON documents, so an Entry holding {"name":"Ann"}
// is stored as {"data":{"name":"Ann"}}.
type JSONCodec struct{}

var _ Codec = JSONCodec{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "json marshal")
	}
	return buf, nil
}

// Unmarshal decodes data into v. Numbers landing in interface values are kept
// as json.Number so 64-bit integers survive.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "json unmarshal")
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("json unmarshal: trailing data after document")
	}
	return nil
}

// MsgpackCodec stores values as msgpack. Struct fields must be exported to
// survive the round trip; use msgpack struct tags to control field names.
type MsgpackCodec struct{}

var _ Codec = MsgpackCodec{}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Marshal(v any) ([]byte, error) {
	buf, err := msgpack.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "msgpack marshal")
	}
	return buf, nil
}

func (MsgpackCodec) Unmarshal(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "msgpack unmarshal")
	}
	return nil
}

// CodecByName returns the codec registered under name ("json" or "msgpack").
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	}
	return nil, errors.Newf("cache: unknown codec %q", name)
}

// EncodeEntry wraps val in an Entry and encodes it.
func EncodeEntry(c Codec, val any) ([]byte, error) {
	return c.Marshal(Entry{Data: val})
}

// DecodeEntry decodes an Entry and returns its payload. A document without a
// payload decodes to a nil value. JSON numbers come back as int64 when they are
// integral and float64 otherwise.
func DecodeEntry(c Codec, data []byte) (any, error) {
	var e Entry
	if err := c.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return normalizeNumbers(e.Data), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeNumbers(val)
		}
	case []any:
		for i, val := range t {
			t[i] = normalizeNumbers(val)
		}
	}
	return v
}
