package db

import "errors"

// ErrKeyNotFound signals a missing key or an empty hash.
var ErrKeyNotFound = errors.New("db: key not found")

// Op names the failing command in an Error.
const (
	OpPing    = "PING"
	OpSearch  = "FT.SEARCH"
	OpHGetAll = "HGETALL"
	OpGet     = "GET"
	OpSet     = "SET"
)

// Error wraps a store failure with the command and, when there is one, the key.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Key + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
