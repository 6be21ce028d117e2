package mppfc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNumProcCases(t *testing.T) {
	const cores = 8

	cases := []struct {
		name    string
		spec    any
		want    int
		wantErr bool
	}{
		{"one", 1, 1, false},
		{"all-cores-int", cores, cores, false},
		{"exceeds-cores", cores + 1, 0, true},
		{"negative-one", -1, cores - 1, false},
		{"zero", 0, cores, false},
		{"negative-cores", -cores, 0, true},
		{"half-fraction", 0.5, 4, false},
		{"whole-fraction", 1.0, cores, false},
		{"fraction-over-one", 1.1, 0, true},
		{"zero-fraction", 0.0, 0, true},
		{"all-string", "all", cores, false},
		{"garbage-string", "most", 0, true},
		{"unsupported-type", struct{}{}, 0, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := ParseNumProc(c.spec, cores)
			if c.wantErr {
				require.Error(t, err)
				k, ok := errKind(err)
				require.True(t, ok)
				require.Equal(t, BadCall, k)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.want, got)
		})
	}
}
