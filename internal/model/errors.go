package model

import "errors"

var (
	ErrDestinationExists = errors.New("destination already exists")
	ErrOutsideRoot       = errors.New("path is outside of root")
	ErrRootNotFound      = errors.New("root directory not found")
)
