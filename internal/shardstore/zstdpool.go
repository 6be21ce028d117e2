package shardstore

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// decoderPool manages reusable zstd decoders to reduce allocation overhead,
// adapted from the disk cache's DecompressPool: Get resets a pooled decoder
// onto r instead of allocating one per call, falling back to a one-off
// decoder whenever the pool can't supply a usable one.
type decoderPool struct {
	pool *sync.Pool
}

func newDecoderPool() *decoderPool {
	p := &decoderPool{}
	p.pool = &sync.Pool{
		New: func() any {
			dec, err := zstd.NewReader(nil)
			if err != nil {
				return nil
			}
			return dec
		},
	}
	return p
}

// Get returns a decoder reading from r and a release func the caller must
// invoke when done. If an error is returned, no release func needs calling.
func (p *decoderPool) Get(r io.Reader) (*zstd.Decoder, func(), error) {
	value := p.pool.Get()
	if value == nil {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	}

	dec, ok := value.(*zstd.Decoder)
	if !ok || dec == nil {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	}

	if err := dec.Reset(r); err != nil {
		dec.Close()
		newDec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return newDec, newDec.Close, nil
	}

	return dec, func() {
		_ = dec.Reset(nil) //nolint:errcheck // clearing state before pool return
		p.pool.Put(dec)
	}, nil
}

// encoderPool is decoderPool's write-side counterpart: pooled zstd encoders
// reset onto a new writer per entry instead of allocated fresh each time.
type encoderPool struct {
	pool *sync.Pool
}

func newEncoderPool() *encoderPool {
	p := &encoderPool{}
	p.pool = &sync.Pool{
		New: func() any {
			enc, err := zstd.NewWriter(nil)
			if err != nil {
				return nil
			}
			return enc
		},
	}
	return p
}

// Get returns an encoder writing to w and a release func the caller must
// invoke after Close-ing the encoder. If an error is returned, no release
// func needs calling.
func (p *encoderPool) Get(w io.Writer) (*zstd.Encoder, func(), error) {
	value := p.pool.Get()
	if value == nil {
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}
		return enc, func() {}, nil
	}

	enc, ok := value.(*zstd.Encoder)
	if !ok || enc == nil {
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}
		return enc, func() {}, nil
	}

	enc.Reset(w)
	return enc, func() {
		enc.Reset(io.Discard)
		p.pool.Put(enc)
	}, nil
}

var (
	sharedDecoderPool = newDecoderPool()
	sharedEncoderPool = newEncoderPool()
)
