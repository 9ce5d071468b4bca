// Package convert guards the integer narrowings the infrastructure
// layer performs, mostly around retry counters and shift amounts.
package convert

import "fmt"

// IntToUint converts an int to uint, failing on negative input.
func IntToUint(v int) (uint, error) {
	if v < 0 {
		return 0, fmt.Errorf("cannot convert negative int %d to uint", v)
	}
	return uint(v), nil
}

// IntToUintSafe converts an int to uint, panicking on negative input.
// Reserve it for values already bounded by the caller, like retry
// attempt counters.
func IntToUintSafe(v int) uint {
	if v < 0 {
		panic(fmt.Sprintf("cannot convert negative int %d to uint", v))
	}
	return uint(v)
}

// IntToUintClamped converts an int to uint, flooring negatives at zero.
func IntToUintClamped(v int) uint {
	if v < 0 {
		return 0
	}
	return uint(v)
}
