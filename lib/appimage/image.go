// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package appimage

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Magic is the first four bytes of every application image ("WARD").
const Magic uint32 = 0x57415244

// headerSize is the fixed header length: magic, header size, content
// size, each a big-endian u32.
const headerSize = 12

// tlvHeaderSize is the fixed prefix of a footer record: type u16 plus
// length u16.
const tlvHeaderSize = 4

// Errors returned by Parse and AppendFooter.
var (
	ErrMalformedFooter = errors.New("appimage: malformed credential footer")
	ErrBadHeader       = errors.New("appimage: bad image header")
)

// Image is a structurally parsed application image. It references the
// raw buffer handed to Parse; callers must not mutate that buffer
// while the Image is in use.
type Image struct {
	// Content is the application content region (everything between
	// the fixed header and the footer region).
	Content []byte

	// Footers are the credential records in on-flash order, Reserved
	// and unknown records included so callers observe parse order.
	Footers []CredentialRecord

	raw        []byte
	digestEnd  int
	footerSize int
}

// DigestRegion returns the bytes a credential attests: the fixed
// header and the content, excluding the footer region. Appending a
// footer therefore never invalidates existing credentials.
func (img *Image) DigestRegion() []byte {
	return img.raw[:img.digestEnd]
}

// FooterRegion returns the raw trailing TLV bytes.
func (img *Image) FooterRegion() []byte {
	return img.raw[img.digestEnd:]
}

// Size returns the total image length in bytes.
func (img *Image) Size() int { return len(img.raw) }

// Parse structurally decodes raw as an application image. It runs
// once, at load time, and has no side effects.
//
// Errors wrap ErrBadHeader when the fixed header is short, carries the
// wrong magic, or declares sizes that disagree with the buffer, and
// ErrMalformedFooter when a TLV record's length runs past the end of
// the image or trailing bytes are too short to hold a record header.
func Parse(raw []byte) (*Image, error) {
	if len(raw) < headerSize {
		return nil, fmt.Errorf("%w: image is %d bytes, header needs %d", ErrBadHeader, len(raw), headerSize)
	}
	magic := binary.BigEndian.Uint32(raw[0:4])
	if magic != Magic {
		return nil, fmt.Errorf("%w: magic 0x%08x, want 0x%08x", ErrBadHeader, magic, Magic)
	}
	declaredHeader := binary.BigEndian.Uint32(raw[4:8])
	contentSize := binary.BigEndian.Uint32(raw[8:12])
	if declaredHeader != headerSize {
		return nil, fmt.Errorf("%w: header size %d, want %d", ErrBadHeader, declaredHeader, headerSize)
	}
	digestEnd := int(declaredHeader) + int(contentSize)
	if digestEnd > len(raw) {
		return nil, fmt.Errorf("%w: content size %d exceeds image size %d", ErrBadHeader, contentSize, len(raw))
	}

	img := &Image{
		Content:    raw[headerSize:digestEnd],
		raw:        raw,
		digestEnd:  digestEnd,
		footerSize: len(raw) - digestEnd,
	}

	// Walk the footer region. Every byte from digestEnd to EOF must
	// belong to a well-formed record.
	offset := digestEnd
	for offset < len(raw) {
		remaining := len(raw) - offset
		if remaining < tlvHeaderSize {
			return nil, fmt.Errorf("%w: %d trailing bytes at offset %d, record header needs %d",
				ErrMalformedFooter, remaining, offset, tlvHeaderSize)
		}
		kind := FooterKind(binary.BigEndian.Uint16(raw[offset : offset+2]))
		length := int(binary.BigEndian.Uint16(raw[offset+2 : offset+4]))
		offset += tlvHeaderSize
		if length > len(raw)-offset {
			return nil, fmt.Errorf("%w: record %s at offset %d declares %d payload bytes, %d remain",
				ErrMalformedFooter, kind, offset-tlvHeaderSize, length, len(raw)-offset)
		}
		img.Footers = append(img.Footers, CredentialRecord{
			Kind:    kind,
			Payload: raw[offset : offset+length],
		})
		offset += length
	}
	return img, nil
}

// Build assembles a well-formed image from content and footer records.
// Used by the signing tooling and tests; the loader only ever parses.
func Build(content []byte, footers ...CredentialRecord) []byte {
	size := headerSize + len(content)
	for _, rec := range footers {
		size += tlvHeaderSize + len(rec.Payload)
	}
	raw := make([]byte, 0, size)

	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[0:4], Magic)
	binary.BigEndian.PutUint32(header[4:8], headerSize)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(content)))
	raw = append(raw, header[:]...)
	raw = append(raw, content...)
	for _, rec := range footers {
		raw = appendRecord(raw, rec)
	}
	return raw
}

// AppendFooter returns a copy of raw with one more credential record
// at the end. The input must already be a well-formed image; the
// digest region is unchanged, so existing credentials stay valid.
func AppendFooter(raw []byte, rec CredentialRecord) ([]byte, error) {
	if _, err := Parse(raw); err != nil {
		return nil, err
	}
	if len(rec.Payload) > 0xffff {
		return nil, fmt.Errorf("%w: payload of %d bytes exceeds the u16 length field", ErrMalformedFooter, len(rec.Payload))
	}
	out := make([]byte, len(raw), len(raw)+tlvHeaderSize+len(rec.Payload))
	copy(out, raw)
	return appendRecord(out, rec), nil
}

func appendRecord(raw []byte, rec CredentialRecord) []byte {
	var tlv [tlvHeaderSize]byte
	binary.BigEndian.PutUint16(tlv[0:2], uint16(rec.Kind))
	binary.BigEndian.PutUint16(tlv[2:4], uint16(len(rec.Payload)))
	raw = append(raw, tlv[:]...)
	return append(raw, rec.Payload...)
}
