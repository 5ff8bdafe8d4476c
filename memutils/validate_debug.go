//go:build debug_mem_utils

package memutils

import "encoding/binary"

const (
	// DebugMargin is the number of bytes of marker data appended to each allocation that is tracked
	// with corruption detection
	DebugMargin int = 16
	// corruptionDetectionMagicValue is a 4-byte pattern repeated across the debug margin
	corruptionDetectionMagicValue uint32 = 0x7F84E666
)

// WriteMagicValue fills margin with an easy-to-identify marker.
// This method no-ops unless the debug_mem_utils build tag is present.
func WriteMagicValue(margin []byte) {
	for len(margin) >= 4 {
		binary.LittleEndian.PutUint32(margin, corruptionDetectionMagicValue)
		margin = margin[4:]
	}
}

// ValidateMagicValue reports whether the marker written by WriteMagicValue is still intact.
// This method always returns true unless the debug_mem_utils build tag is present.
func ValidateMagicValue(margin []byte) bool {
	if len(margin) < DebugMargin {
		return false
	}

	for len(margin) >= 4 {
		if binary.LittleEndian.Uint32(margin) != corruptionDetectionMagicValue {
			return false
		}
		margin = margin[4:]
	}

	return true
}

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_mem_utils build tag is present
func DebugValidate(validatable Validatable) {
	err := validatable.Validate()
	if err != nil {
		panic(err)
	}
}

// DebugCheckMultiple panics if number is not a whole multiple of base.
// This method no-ops unless the debug_mem_utils build tag is present.
func DebugCheckMultiple(number int, base int, name string) {
	err := CheckMultiple(number, base, name)
	if err != nil {
		panic(err)
	}
}
