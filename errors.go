package bootmem

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

// ErrNoMemory is returned from allocation methods when the request cannot be satisfied
// within the allocator's current bounds. Callers may retry with smaller requests or
// fall back to another allocator.
var ErrNoMemory error = errors.New("out of memory")

// ErrInvalidParam is returned from allocation methods when a size or alignment argument
// violates the allocator's parameter constraints. The request can be retried with
// corrected parameters.
var ErrInvalidParam error = errors.New("invalid allocation parameter")

// ErrUnsupported is returned from operations that an allocator structurally excludes
// from its contract. It indicates a caller-side logic error and must not be retried.
var ErrUnsupported error = errors.New("operation not supported by this allocator")
