package editor

import "errors"

var (
	ErrIndexOutOfRange = errors.New("block type index out of range")
	ErrUnknownField    = errors.New("unknown block type field")
	ErrFieldValue      = errors.New("invalid value for block type field")
)
