package serialization

import "github.com/eigerco/raffle/pkg/serialization/codec"

// NewJSON returns an indenting JSON serializer for operator facing output.
func NewJSON() *Serializer {
	return NewSerializer(&codec.JSONCodec{Indent: true})
}
