// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is Warden's single CBOR entry point. Everything that
// crosses a socket or lands in the journal encodes through here, so
// the whole tree shares one deterministic configuration and no other
// package imports the CBOR library directly.
package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. Same logical data always
// produces identical bytes, which keeps journal records and wire
// frames byte-stable across daemon restarts.
var encMode cbor.EncMode

// decMode is the CBOR decoder configured to accept standard CBOR.
// Unknown fields are silently ignored for forward compatibility.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Types implementing encoding.TextMarshaler (shortid.ShortId,
	// registry.State, appstore.Ref) serialize as CBOR text strings
	// via MarshalText. Without this, a struct field holding a
	// ShortId — whose data is unexported — would serialize as an
	// empty CBOR map, losing the identity.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Warden never uses non-string map keys. When the decoder's
		// target is any (journal detail maps), it must pick a
		// concrete Go map type; the CBOR default of
		// map[interface{}]interface{} is incompatible with
		// encoding/json and most Go code expecting map[string]any.
		// Struct field decoding is unaffected.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Mirror of the TextMarshaler setting above so ShortId,
		// State, and Ref round-trip through their text forms.
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Encoder is a CBOR stream encoder. Type alias so consumers import
// only lib/codec, not the CBOR library directly.
type Encoder = cbor.Encoder

// Decoder is a CBOR stream decoder. Type alias so consumers import
// only lib/codec, not the CBOR library directly.
type Decoder = cbor.Decoder

// RawMessage is a raw encoded CBOR value, useful to delay decoding of
// a frame's payload until its action is known.
type RawMessage = cbor.RawMessage

// NewEncoder returns a CBOR encoder writing to w with Warden's
// deterministic configuration.
func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a CBOR decoder reading from r with Warden's
// standard decoding configuration.
func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for
// data. The warden CLI uses this to dump journal records readably.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
