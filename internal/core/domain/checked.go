package domain

import (
	"fmt"
	"math"
)

// CheckedAdd returns a+b, or ErrArithmeticOverflow if the sum does not fit in a uint64.
func CheckedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, fmt.Errorf("%w: %d + %d", ErrArithmeticOverflow, a, b)
	}
	return a + b, nil
}
