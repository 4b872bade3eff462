package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("user not found")
	ErrDuplicateKey  = errors.New("duplicate user id")
	ErrIndexNotFound = errors.New("hinted index does not exist")
	ErrConnect       = errors.New("connect to store failed")
	ErrUnknownStore  = errors.New("unknown store kind")
	ErrInvalidQuery  = errors.New("invalid query")
	ErrStoreClosed   = errors.New("store closed")
)
