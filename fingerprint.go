package mppfc

import (
	"reflect"

	digest "github.com/opencontainers/go-digest"

	"mppfc/internal/canon"
)

// bindTag is the struct tag used to override the field name used as the
// hashed parameter name, mirroring a user function's declared parameter
// name in the source system. Unexported fields are skipped, since a Go
// function body cannot observe them either.
const bindTag = "mppfc"

// binding describes the call argument type once, at Wrap time: which
// fields participate in hashing, and under which name.
type binding struct {
	fields []bindingField
}

type bindingField struct {
	index int
	name  string
}

// newBinding reflects over argsType (a struct type) and records its
// exported fields in declaration order, honoring `mppfc:"name"` tags.
// argsType must be a struct type; anything else is a BadCall at Wrap time.
func newBinding(argsType reflect.Type) (*binding, error) {
	for argsType.Kind() == reflect.Ptr {
		argsType = argsType.Elem()
	}
	if argsType.Kind() != reflect.Struct {
		return nil, newError(BadCall, nil, "argument type %s is not a struct", argsType)
	}

	b := &binding{}
	for i := 0; i < argsType.NumField(); i++ {
		f := argsType.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup(bindTag); ok && tag != "" {
			name = tag
		}
		b.fields = append(b.fields, bindingField{index: i, name: name})
	}
	return b, nil
}

// namedArgs extracts the (name, value) pairs for one call's argument
// struct. Defaults are already materialized, since Go zero-values the
// struct fields the caller didn't set — there is no separate default-value
// step to perform.
func (b *binding) namedArgs(args reflect.Value) []canon.NamedArg {
	for args.Kind() == reflect.Ptr {
		args = args.Elem()
	}
	out := make([]canon.NamedArg, 0, len(b.fields))
	for _, f := range b.fields {
		out = append(out, canon.NamedArg{Name: f.name, Value: args.Field(f.index).Interface()})
	}
	return out
}

// Fingerprint computes the content hash H for a call's argument struct:
// SHA-256 of the canonical encoding of the name-sorted (name, value) pairs.
// args must be a struct (or pointer to struct); anything else is BadCall,
// and an unsupported field value is Unhashable.
func Fingerprint(args any) (digest.Digest, error) {
	v := reflect.ValueOf(args)
	t := v.Type()
	b, err := newBinding(t)
	if err != nil {
		return "", err
	}

	encoded, err := canon.EncodeNamedArgs(b.namedArgs(v))
	if err != nil {
		return "", newError(Unhashable, err, "argument could not be canonically encoded")
	}

	return digest.FromBytes(encoded), nil
}
