package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound  = errors.New("media not found")
	ErrDuplicate = errors.New("submission already applied")
	ErrBusy      = errors.New("store busy")
)
