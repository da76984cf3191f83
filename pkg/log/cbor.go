package log

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Capture files are a plain concatenation of CBOR-encoded events with
// integer keys. Encoding is canonical so identical captures compare
// byte-for-byte; decoding stays permissive so captures written by newer
// client versions still load.
var (
	captureEnc = mustEncMode()
	captureDec = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano // keep nanosecond timestamps
	opts.NilContainers = cbor.NilContainerAsNull
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("log: capture encoder mode: %v", err))
	}
	return em
}

func mustDecMode() cbor.DecMode {
	// Default decode options already tolerate unknown fields and duplicate
	// map keys, which reading a newer client's capture needs.
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("log: capture decoder mode: %v", err))
	}
	return dm
}

// EncodeEvent encodes one event to its capture-file representation.
func EncodeEvent(event Event) ([]byte, error) {
	return captureEnc.Marshal(event)
}

// DecodeEvent decodes one capture-file event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	err := captureDec.Unmarshal(data, &event)
	return event, err
}

// NewEncoder returns an encoder that appends capture events to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return captureEnc.NewEncoder(w)
}

// NewDecoder returns a decoder that reads capture events from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return captureDec.NewDecoder(r)
}
