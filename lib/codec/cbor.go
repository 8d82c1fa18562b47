// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Aliases so the rest of the tree imports codec, never the CBOR
// library directly.
type (
	Encoder    = cbor.Encoder
	Decoder    = cbor.Decoder
	RawMessage = cbor.RawMessage
)

// encMode writes Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, shortest integer forms, definite lengths. Equal values
// encode to equal bytes, so wire captures of the same request are
// byte-comparable. TextMarshaler types become CBOR text strings
// instead of collapsing to empty maps when their fields are
// unexported.
var encMode = func() cbor.EncMode {
	options := cbor.CoreDetEncOptions()
	options.TextMarshaler = cbor.TextMarshalerTextString
	mode, err := options.EncMode()
	if err != nil {
		panic("codec: building encode mode: " + err.Error())
	}
	return mode
}()

// decMode accepts standard CBOR and ignores unknown fields, so an
// older CLI can read a newer daemon's responses.
var decMode = func() cbor.DecMode {
	mode, err := cbor.DecOptions{
		// Any-typed targets decode maps as map[string]any rather than
		// the CBOR default map[any]any; admin payloads never carry
		// non-string keys, and the rest of the code expects string
		// maps. Struct targets are unaffected.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Round-trip counterpart of TextMarshaler above.
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: building decode mode: " + err.Error())
	}
	return mode
}()

// Marshal encodes v as deterministic CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewEncoder returns an encoder writing deterministic CBOR to w.
func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a decoder reading one value at a time from r.
func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}
