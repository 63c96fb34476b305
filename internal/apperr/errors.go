package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrBuildFailed = errors.New("build failed")
)
