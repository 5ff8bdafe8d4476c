package memutils

import (
	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/exp/constraints"
)

// CheckMultiple returns MultipleError if number is not a whole multiple of base. A zero base is never
// a valid divisor and always fails.
func CheckMultiple[T constraints.Integer](number T, base T, name string) error {
	if base == 0 || number%base != 0 {
		return cerrors.Wrapf(MultipleError, "%s is %d, base is %d", name, number, base)
	}
	return nil
}

// RoundUp rounds value up to the nearest multiple of base. Unlike AlignUp, base does not need to be
// a power of two.
func RoundUp[T constraints.Integer](value T, base T) T {
	return (value + base - 1) / base * base
}

// DivCeil divides value by divisor, rounding up
func DivCeil[T constraints.Integer](value T, divisor T) T {
	return (value + divisor - 1) / divisor
}

func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}
