package bootmem

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint | ~uintptr
}

func CheckPow2[T Number](number T, name string) error {
	if number == 0 || number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

func AlignUp(value uintptr, alignment uintptr) uintptr {
	return (value + alignment - 1) & ^(alignment - 1)
}

func AlignDown(value uintptr, alignment uintptr) uintptr {
	return value & ^(alignment - 1)
}
