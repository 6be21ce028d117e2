// Package canon implements a minimal, deterministic binary encoding used to
// turn a call's bound arguments into bytes suitable for content-hashing.
//
// This stands in for the "canonical serializer" the cache design treats as
// an external collaborator: it is deliberately small and only supports the
// value shapes a cached function's arguments realistically take (scalars,
// strings, byte slices, and slices/maps thereof). It is not a general
// purpose serialization library and makes no attempt to round-trip through
// interfaces, pointers to structs, or anything requiring reflection beyond
// a fixed, closed set of kinds.
//
// Each value is prefixed with a one-byte tag so that, e.g., the int64 value
// 1 and the float64 value 1.0 always encode to different byte strings and
// therefore hash differently — this is documented cache behavior, not a bug.
package canon

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// ErrUnsupportedType is returned when Encode encounters a value it does not
// know how to encode deterministically.
var ErrUnsupportedType = errors.New("canon: unsupported argument type")

type tag byte

const (
	tagNil tag = iota
	tagBool
	tagInt
	tagUint
	tagFloat
	tagString
	tagBytes
	tagSlice
	tagMap
)

// NamedArg is one (parameter name, value) pair of a bound call.
type NamedArg struct {
	Name  string
	Value any
}

// EncodeNamedArgs encodes a call's bound arguments as a sequence of
// (name, value) pairs sorted by name, as required for the fingerprint to be
// independent of declaration order once defaults have been applied.
func EncodeNamedArgs(args []NamedArg) ([]byte, error) {
	sorted := make([]NamedArg, len(args))
	copy(sorted, args)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	buf := make([]byte, 0, 64*len(sorted))
	var u64 [8]byte
	binary.BigEndian.PutUint64(u64[:], uint64(len(sorted)))
	buf = append(buf, u64[:]...)

	for _, a := range sorted {
		buf = appendString(buf, a.Name)
		enc, err := Encode(a.Value)
		if err != nil {
			return nil, fmt.Errorf("canon: argument %q: %w", a.Name, err)
		}
		buf = appendBytes(buf, enc)
	}
	return buf, nil
}

// Encode deterministically encodes a single value.
func Encode(v any) ([]byte, error) {
	var buf []byte
	buf, err := encodeInto(buf, reflect.ValueOf(v))
	return buf, err
}

func encodeInto(buf []byte, v reflect.Value) ([]byte, error) {
	if !v.IsValid() {
		return append(buf, byte(tagNil)), nil
	}

	switch v.Kind() {
	case reflect.Bool:
		buf = append(buf, byte(tagBool))
		if v.Bool() {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf = append(buf, byte(tagInt))
		return appendInt64(buf, v.Int()), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		buf = append(buf, byte(tagUint))
		return appendUint64(buf, v.Uint()), nil

	case reflect.Float32, reflect.Float64:
		buf = append(buf, byte(tagFloat))
		bits := math.Float64bits(v.Float())
		return appendUint64(buf, bits), nil

	case reflect.String:
		buf = append(buf, byte(tagString))
		return appendString(buf, v.String()), nil

	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			buf = append(buf, byte(tagBytes))
			return appendBytes(buf, v.Bytes()), nil
		}
		buf = append(buf, byte(tagSlice))
		buf = appendUint64(buf, uint64(v.Len()))
		var err error
		for i := 0; i < v.Len(); i++ {
			buf, err = encodeInto(buf, v.Index(i))
			if err != nil {
				return nil, err
			}
		}
		return buf, nil

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key %s (only string keys are supported)", ErrUnsupportedType, v.Type().Key())
		}
		buf = append(buf, byte(tagMap))
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		buf = appendUint64(buf, uint64(len(keys)))
		var err error
		for _, k := range keys {
			buf = appendString(buf, k.String())
			buf, err = encodeInto(buf, v.MapIndex(k))
			if err != nil {
				return nil, err
			}
		}
		return buf, nil

	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return append(buf, byte(tagNil)), nil
		}
		return encodeInto(buf, v.Elem())

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, v.Kind())
	}
}

func appendInt64(buf []byte, i int64) []byte {
	return appendUint64(buf, uint64(i))
}

func appendUint64(buf []byte, u uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], u)
	return append(buf, tmp[:]...)
}

func appendBytes(buf []byte, b []byte) []byte {
	buf = appendUint64(buf, uint64(len(b)))
	return append(buf, b...)
}

func appendString(buf []byte, s string) []byte {
	return appendBytes(buf, []byte(s))
}
