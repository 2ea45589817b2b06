package board

import "errors"

var (
	ErrInvalidLimit    = errors.New("invalid board limit")
	ErrInvalidCapacity = errors.New("invalid board capacity")
)
