package randomness

import "errors"

var (
	ErrNotOpen        = errors.New("round is not open")
	ErrUnknownRequest = errors.New("unknown request")
)
