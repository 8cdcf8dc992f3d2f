package codec

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"

	"github.com/ChainSafe/gossamer/pkg/scale"
)

// ErrNonCanonical is returned when data is not exactly the encoding of the
// value it decodes to: it was cut short, has trailing bytes or is not in
// canonical form.
var ErrNonCanonical = errors.New("non canonical SCALE encoding")

// SCALECodec implements the Codec interface for SCALE encoding and decoding.
// Structs are encoded field by field in declaration order, pointers as options.
type SCALECodec struct{}

func (s *SCALECodec) Marshal(v interface{}) ([]byte, error) {
	return scale.Marshal(v)
}

// Unmarshal decodes data into v, which must be a non-nil pointer. The
// decoder accepts a fixed width integer cut short at the end of its input,
// so the result is encoded again and must reproduce data exactly.
func (s *SCALECodec) Unmarshal(data []byte, v interface{}) error {
	if err := scale.Unmarshal(data, v); err != nil {
		return err
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("decode into %T: not a pointer", v)
	}
	reencoded, err := scale.Marshal(rv.Elem().Interface())
	if err != nil {
		return err
	}
	if !bytes.Equal(reencoded, data) {
		return fmt.Errorf("%w: %d bytes decode to a %d byte value", ErrNonCanonical, len(data), len(reencoded))
	}
	return nil
}
