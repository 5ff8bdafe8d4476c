package memutils

import "github.com/pkg/errors"

// MultipleError is the error returned from CheckMultiple or other methods if a number is not a whole multiple
// of the base it is being tested against
var MultipleError error = errors.New("number must be a whole multiple of its base")
