package mppfc

import "math"

// ParseNumProc resolves a num_proc specification against the number of
// available cores:
//
//   - string "all"       -> cores
//   - float64 f in (0,1] -> floor(f * cores)
//   - int k > 0          -> k, must not exceed cores
//   - int k <= 0         -> cores + k, and k must strictly exceed -cores
//
// Anything else is BadCall.
func ParseNumProc(spec any, cores int) (int, error) {
	switch v := spec.(type) {
	case string:
		if v == "all" {
			return cores, nil
		}
		return 0, newError(BadCall, nil, "unrecognized num_proc string %q", v)

	case float32:
		return ParseNumProc(float64(v), cores)

	case float64:
		if v <= 0 || v > 1 {
			return 0, newError(BadCall, nil, "num_proc fraction %v is outside (0,1]", v)
		}
		return int(math.Floor(v * float64(cores))), nil

	case int:
		if v > 0 {
			if v > cores {
				return 0, newError(BadCall, nil, "num_proc %d exceeds available cores (%d)", v, cores)
			}
			return v, nil
		}
		if v <= -cores {
			return 0, newError(BadCall, nil, "num_proc %d must strictly exceed -cores (-%d)", v, cores)
		}
		return cores + v, nil

	default:
		return 0, newError(BadCall, nil, "unsupported num_proc type %T", spec)
	}
}
