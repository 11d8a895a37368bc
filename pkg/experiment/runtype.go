package experiment

import "fmt"

// RunType is the execution-state condition under measurement.
type RunType int

const (
	Warm RunType = iota
	Cold
	Burst
	Sequential
)

func (rt RunType) String() string {
	switch rt {
	case Warm:
		return "warm"
	case Cold:
		return "cold"
	case Burst:
		return "burst"
	case Sequential:
		return "sequential"
	default:
		return fmt.Sprintf("RunType(%d)", int(rt))
	}
}

// Implemented reports whether measurement for this run type exists. Burst
// and sequential are accepted in configuration but not yet measurable.
func (rt RunType) Implemented() bool {
	switch rt {
	case Warm, Cold:
		return true
	case Burst, Sequential:
		return false
	default:
		return false
	}
}

// ParseRunType maps a configured experiment name to its run type. An
// unknown name is a configuration mistake, not a transient condition.
func ParseRunType(name string) (RunType, error) {
	switch name {
	case "warm":
		return Warm, nil
	case "cold":
		return Cold, nil
	case "burst":
		return Burst, nil
	case "sequential":
		return Sequential, nil
	default:
		return 0, fmt.Errorf("unknown experiment type %q", name)
	}
}
