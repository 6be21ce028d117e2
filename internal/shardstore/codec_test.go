package shardstore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGobCodecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	c := GobCodec[string]{}

	require.NoError(t, c.Encode(&buf, "hello world"))

	var got string
	require.NoError(t, c.Decode(&buf, &got))
	require.Equal(t, "hello world", got)
}

func TestZstdCodecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	c := ZstdCodec[string]{Inner: GobCodec[string]{}}

	payload := bytes.Repeat([]byte("compressible payload "), 200)
	require.NoError(t, c.Encode(&buf, string(payload)))

	var got string
	require.NoError(t, c.Decode(&buf, &got))
	require.Equal(t, string(payload), got)
}

func TestZstdCodecMatchesUncompressedValue(t *testing.T) {
	value := "identical on both sides of the wire"

	var plain bytes.Buffer
	require.NoError(t, GobCodec[string]{}.Encode(&plain, value))

	var compressed bytes.Buffer
	require.NoError(t, ZstdCodec[string]{Inner: GobCodec[string]{}}.Encode(&compressed, value))

	var fromPlain, fromCompressed string
	require.NoError(t, GobCodec[string]{}.Decode(&plain, &fromPlain))
	require.NoError(t, ZstdCodec[string]{Inner: GobCodec[string]{}}.Decode(&compressed, &fromCompressed))

	require.Equal(t, value, fromPlain)
	require.Equal(t, value, fromCompressed)
}

func TestZstdCodecPooledEncodersDecodersDontLeakState(t *testing.T) {
	c := ZstdCodec[string]{Inner: GobCodec[string]{}}

	values := []string{"first value", "a different second value", "third"}
	for _, v := range values {
		var buf bytes.Buffer
		require.NoError(t, c.Encode(&buf, v))

		var got string
		require.NoError(t, c.Decode(&buf, &got))
		require.Equal(t, v, got, "a reused pooled encoder/decoder must not mix state across calls")
	}
}

func TestStoreWithZstdCompressionRoundTrip(t *testing.T) {
	s, err := New[string](t.TempDir(), ZstdCodec[string]{Inner: GobCodec[string]{}})
	require.NoError(t, err)

	h := digestOf("zstd-entry")
	require.NoError(t, s.Write(h, "some text worth compressing"))

	got, err := s.Read(h)
	require.NoError(t, err)
	require.Equal(t, "some text worth compressing", got)
}
