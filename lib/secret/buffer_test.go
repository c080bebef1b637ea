// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"testing"
)

func TestNewValidSize(t *testing.T) {
	buffer, err := New(64)
	if err != nil {
		t.Fatalf("New(64) failed: %v", err)
	}
	defer buffer.Close()

	if buffer.Len() != 64 {
		t.Errorf("expected length 64, got %d", buffer.Len())
	}

	// mmap hands back zero-filled pages.
	for index, value := range buffer.Bytes() {
		if value != 0 {
			t.Fatalf("expected zero at index %d, got %d", index, value)
		}
	}
}

func TestNewInvalidSize(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for zero size")
	}
	if _, err := New(-1); err == nil {
		t.Fatal("expected error for negative size")
	}
}

func TestNewFromBytes(t *testing.T) {
	source := []byte("signing-key-material")
	original := string(source)

	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != original {
		t.Errorf("expected %q, got %q", original, got)
	}

	for index, value := range source {
		if value != 0 {
			t.Fatalf("source byte %d was not zeroed: got %d", index, value)
		}
	}
}

func TestNewFromBytesEmpty(t *testing.T) {
	if _, err := NewFromBytes([]byte{}); err == nil {
		t.Fatal("expected error for empty source")
	}
}

func TestBufferWriteAndRead(t *testing.T) {
	buffer, err := New(16)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer buffer.Close()

	copy(buffer.Bytes(), []byte("sixteen byte key"))

	if got := buffer.String(); got != "sixteen byte key" {
		t.Errorf("unexpected content: %q", got)
	}
}

func TestBufferCloseReleases(t *testing.T) {
	buffer, err := New(32)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	copy(buffer.Bytes(), []byte("this should be zeroed"))

	if err := buffer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if buffer.data != nil {
		t.Error("expected data to be nil after Close")
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestBufferAccessPanicsAfterClose(t *testing.T) {
	for _, access := range []struct {
		name string
		call func(*Buffer)
	}{
		{"Bytes", func(b *Buffer) { b.Bytes() }},
		{"String", func(b *Buffer) { b.String() }},
	} {
		t.Run(access.name, func(t *testing.T) {
			buffer, err := New(16)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			buffer.Close()

			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic on %s after Close", access.name)
				}
			}()
			access.call(buffer)
		})
	}
}

func TestZero(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	Zero(data)
	for index, value := range data {
		if value != 0 {
			t.Fatalf("byte %d not zeroed: %d", index, value)
		}
	}
}
