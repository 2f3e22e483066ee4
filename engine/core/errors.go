package core

import (
	"errors"
)

var (
	ErrInvalidID = errors.New("identifier out of range")
)
