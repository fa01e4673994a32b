package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONEntryLayout(t *testing.T) {
	buf, err := EncodeEntry(JSONCodec{}, map[string]any{"name": "Ann"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"name":"Ann"}}`, string(buf))

	val, err := DecodeEntry(JSONCodec{}, buf)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Ann"}, val)
}

func TestMsgpackEntry(t *testing.T) {
	buf, err := EncodeEntry(MsgpackCodec{}, "hello")
	require.NoError(t, err)
	val, err := DecodeEntry(MsgpackCodec{}, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", val)
}

func TestDecodeEntryWithoutPayload(t *testing.T) {
	val, err := DecodeEntry(JSONCodec{}, []byte(`{"other":1}`))
	assert.NoError(t, err)
	assert.Nil(t, val)

	_, err = DecodeEntry(JSONCodec{}, []byte(`not json`))
	assert.Error(t, err)
}

func TestJSONEntryKeepsIntegers(t *testing.T) {
	const id = int64(1300000000000000001)
	buf, err := EncodeEntry(JSONCodec{}, map[string]any{"id": id, "score": 1.5, "tags": []any{7}})
	require.NoError(t, err)

	val, err := DecodeEntry(JSONCodec{}, buf)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": id, "score": 1.5, "tags": []any{int64(7)}}, val)

	val, err = DecodeEntry(JSONCodec{}, []byte(`{"data":7}`))
	require.NoError(t, err)
	assert.Equal(t, int64(7), val)

	_, err = DecodeEntry(JSONCodec{}, []byte(`{"data":1} {"data":2}`))
	assert.Error(t, err)
}

func TestCodecByName(t *testing.T) {
	c, err := CodecByName("")
	assert.NoError(t, err)
	assert.Equal(t, "json", c.Name())
	c, err = CodecByName("msgpack")
	assert.NoError(t, err)
	assert.Equal(t, "msgpack", c.Name())
	_, err = CodecByName("xml")
	assert.Error(t, err)
}
