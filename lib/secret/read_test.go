// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadFromPathFile(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "plain value",
			content:  "store-encryption-key",
			expected: "store-encryption-key",
		},
		{
			name:     "trailing newline",
			content:  "store-encryption-key\n",
			expected: "store-encryption-key",
		},
		{
			name:     "surrounding whitespace",
			content:  "  store-encryption-key  \n",
			expected: "store-encryption-key",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(tempDir, test.name)
			if err := os.WriteFile(path, []byte(test.content), 0600); err != nil {
				t.Fatalf("writing test file: %v", err)
			}

			result, err := ReadFromPath(path)
			if err != nil {
				t.Fatalf("ReadFromPath() error: %v", err)
			}
			defer result.Close()
			if result.String() != test.expected {
				t.Errorf("ReadFromPath() = %q, want %q", result.String(), test.expected)
			}
		})
	}
}

func TestReadFromPathErrors(t *testing.T) {
	tempDir := t.TempDir()

	empty := filepath.Join(tempDir, "empty")
	if err := os.WriteFile(empty, nil, 0600); err != nil {
		t.Fatalf("writing test file: %v", err)
	}
	whitespace := filepath.Join(tempDir, "whitespace")
	if err := os.WriteFile(whitespace, []byte("   \n\t\n"), 0600); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	for _, test := range []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(tempDir, "absent")},
		{"empty file", empty},
		{"whitespace only", whitespace},
	} {
		t.Run(test.name, func(t *testing.T) {
			if _, err := ReadFromPath(test.path); err == nil {
				t.Errorf("ReadFromPath(%q) should return error", test.path)
			}
		})
	}
}
