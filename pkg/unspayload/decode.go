package unspayload

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// UnmarshalExact is json.Unmarshal with numbers decoded as json.Number, so a
// reading such as a 64-bit counter is re-encoded exactly as it arrived.
// Trailing data after the first JSON value is an error.
func UnmarshalExact(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after top-level value")
	}
	return nil
}
