// Package policy holds the sentinel errors shared across the policy
// compiler's sub-packages, following the teacher's pkg/util/errors.go
// pattern of a small sentinel set plus typed structs that wrap them.
package policy

import "errors"

var (
	ErrParse      = errors.New("policy statement parse error")
	ErrSemantic   = errors.New("policy semantic error")
	ErrDependency = errors.New("policy object in use")
	ErrTagOverflow = errors.New("redistribution tag counter overflow")
	ErrRuntime    = errors.New("policy runtime error")
)
