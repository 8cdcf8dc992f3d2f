package ledger

import "errors"

var (
	ErrInsufficientFee = errors.New("insufficient entrance fee")
	ErrIndexOutOfRange = errors.New("entrant index out of range")
	ErrNegativeFee     = errors.New("entrance fee must not be negative")
)
