package state

import (
	"fmt"
	"strconv"
)

// Status is the lifecycle stage of the round.
type Status uint8

const (
	StatusOpen        Status = iota // accepting entries
	StatusCalculating               // entry closed, waiting for randomness or payout
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusCalculating:
		return "CALCULATING"
	default:
		return "Status(" + strconv.Itoa(int(s)) + ")"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "OPEN":
		*s = StatusOpen
	case "CALCULATING":
		*s = StatusCalculating
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

// RequestID identifies one randomness request issued to the oracle.
type RequestID uint64

func (id RequestID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
