package region

import "errors"

var (
	ErrSizeNotSet       = errors.New("region: size is not set")
	ErrAlreadySized     = errors.New("region: size is already set")
	ErrPermissionDenied = errors.New("region: permission denied")
	ErrNameFixed        = errors.New("region: name is fixed once the backing store exists")
	ErrNameTooLong      = errors.New("region: name exceeds the maximum length")
	ErrClosed           = errors.New("region: closed")
	ErrNotFound         = errors.New("region: not found")
)
