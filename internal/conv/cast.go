package conv

import (
	"fmt"
	"math"
)

// Uint64ToInt converts uint64 to int safely.
func Uint64ToInt(v uint64) (int, error) {
	if v > uint64(math.MaxInt) {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to int (too large)", v)
	}
	return int(v), nil
}

// MulInt64 returns the product of non-negative factors, failing instead of
// wrapping around.
func MulInt64(factors ...int64) (int64, error) {
	p := int64(1)
	for _, f := range factors {
		if f < 0 {
			return 0, fmt.Errorf("integer overflow: negative factor %d", f)
		}
		if f != 0 && p > math.MaxInt64/f {
			return 0, fmt.Errorf("integer overflow: product exceeds int64 (factors %v)", factors)
		}
		p *= f
	}
	return p, nil
}
