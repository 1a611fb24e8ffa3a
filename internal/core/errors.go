package core

import "errors"

var (
	ErrMalformedInstance = errors.New("malformed instance type")
	ErrMalformedKernel   = errors.New("malformed kernel version")
	ErrEmptyMatrix       = errors.New("empty matrix")
	ErrEmptyGroupName    = errors.New("empty group name")
	ErrDuplicateKey      = errors.New("duplicate step key")
	ErrUnknownDependency = errors.New("unknown dependency")
	ErrInvalidElement    = errors.New("invalid pipeline element")
	ErrUnknownFormat     = errors.New("unknown output format")
)
