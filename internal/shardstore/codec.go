package shardstore

import (
	"encoding/gob"
	"io"
)

// Codec encodes and decodes the value stored at a shard path. The store
// itself is format-agnostic (§4.2): it only needs something that can read
// and write a T from/to a stream.
type Codec[T any] interface {
	Encode(w io.Writer, v T) error
	Decode(r io.Reader, v *T) error
}

// GobCodec is the default Codec, using encoding/gob. gob does not need to be
// canonical — only the fingerprint hash does — so two callers that hash
// identically may produce non-identical bytes on disk; this is harmless
// since entries are read back through the same Decode.
type GobCodec[T any] struct{}

func (GobCodec[T]) Encode(w io.Writer, v T) error {
	return gob.NewEncoder(w).Encode(v)
}

func (GobCodec[T]) Decode(r io.Reader, v *T) error {
	return gob.NewDecoder(r).Decode(v)
}

// ZstdCodec wraps another Codec with zstd compression, for functions whose
// return values are large and compressible (e.g. text, JSON blobs). Encoders
// and decoders are drawn from package-level pools (zstdpool.go), adapted
// from the disk cache's DecompressPool, instead of allocated fresh on every
// call.
type ZstdCodec[T any] struct {
	Inner Codec[T]
}

func (z ZstdCodec[T]) Encode(w io.Writer, v T) error {
	enc, release, err := sharedEncoderPool.Get(w)
	if err != nil {
		return err
	}
	if err := z.Inner.Encode(enc, v); err != nil {
		_ = enc.Close()
		release()
		return err
	}
	if err := enc.Close(); err != nil {
		release()
		return err
	}
	release()
	return nil
}

func (z ZstdCodec[T]) Decode(r io.Reader, v *T) error {
	dec, release, err := sharedDecoderPool.Get(r)
	if err != nil {
		return err
	}
	defer release()
	return z.Inner.Decode(dec, v)
}
