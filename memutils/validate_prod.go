//go:build !debug_mem_utils

package memutils

const (
	// DebugMargin is the number of bytes of marker data appended to each allocation that is tracked
	// with corruption detection
	DebugMargin int = 0
)

// WriteMagicValue fills margin with an easy-to-identify marker.
// This method no-ops unless the debug_mem_utils build tag is present.
func WriteMagicValue(margin []byte) {
}

// ValidateMagicValue reports whether the marker written by WriteMagicValue is still intact.
// This method always returns true unless the debug_mem_utils build tag is present.
func ValidateMagicValue(margin []byte) bool {
	return true
}

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_mem_utils build tag is present
func DebugValidate(validatable Validatable) {
}

// DebugCheckMultiple panics if number is not a whole multiple of base.
// This method no-ops unless the debug_mem_utils build tag is present.
func DebugCheckMultiple(number int, base int, name string) {
}
