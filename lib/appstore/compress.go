// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package appstore

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionTag identifies the algorithm a blob's payload was
// compressed with. The tag is stored in the blob header (one byte),
// so these values are format constants.
type CompressionTag uint8

const (
	// CompressionNone stores the payload as-is. Also the automatic
	// fallback when a compressor fails to shrink an image.
	CompressionNone CompressionTag = 0

	// CompressionLZ4 is block-mode LZ4: modest ratios on machine
	// code, very cheap to decode. The usual choice.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd is zstd at its default level. Better ratios on
	// images with large data sections, more CPU.
	CompressionZstd CompressionTag = 2
)

// String returns the name used in configuration and CLI output.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(tag))
	}
}

// ParseCompressionTag parses a tag from its configuration name.
func ParseCompressionTag(name string) (CompressionTag, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression tag: %q", name)
	}
}

// errIncompressible reports that compressed output would be at least
// as large as the input. Callers fall back to CompressionNone.
var errIncompressible = errors.New("data is incompressible")

// zstd encoder and decoder are stateless per-call and safe for
// concurrent use, so one of each serves the whole process.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("appstore: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("appstore: zstd decoder initialization failed: " + err.Error())
	}
}

// compress applies tag to data. Returns errIncompressible when the
// result would not be smaller; CompressionNone never fails.
func compress(data []byte, tag CompressionTag) ([]byte, error) {
	switch tag {
	case CompressionNone:
		return data, nil

	case CompressionLZ4:
		bound := lz4.CompressBlockBound(len(data))
		destination := make([]byte, bound)
		written, err := lz4.CompressBlock(data, destination, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		// CompressBlock reports incompressible input as zero bytes
		// written.
		if written == 0 || written >= len(data) {
			return nil, errIncompressible
		}
		return destination[:written], nil

	case CompressionZstd:
		compressed := zstdEncoder.EncodeAll(data, nil)
		if len(compressed) >= len(data) {
			return nil, errIncompressible
		}
		return compressed, nil

	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}

// decompress reverses compress. The uncompressedSize comes from the
// blob header and must match exactly.
func decompress(payload []byte, tag CompressionTag, uncompressedSize int) ([]byte, error) {
	switch tag {
	case CompressionNone:
		if len(payload) != uncompressedSize {
			return nil, fmt.Errorf("uncompressed payload is %d bytes, header says %d",
				len(payload), uncompressedSize)
		}
		return payload, nil

	case CompressionLZ4:
		destination := make([]byte, uncompressedSize)
		read, err := lz4.UncompressBlock(payload, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != uncompressedSize {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
		}
		return destination, nil

	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(payload, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != uncompressedSize {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), uncompressedSize)
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}
