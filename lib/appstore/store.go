// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package appstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/warden-project/warden/lib/secret"
)

// Directory names within the store root.
const (
	imageDir = "images"
	tmpDir   = "tmp"
)

// blobFormatVersion is the first byte of every plaintext blob.
const blobFormatVersion byte = 0x01

// blobHeaderSize is version (1) + compression tag (1) +
// uncompressed size (4, big-endian).
const blobHeaderSize = 6

var (
	// ErrNotFound reports a ref with no stored blob.
	ErrNotFound = errors.New("appstore: image not found")

	// ErrCorrupt reports a stored blob that fails decoding or whose
	// decoded bytes do not hash to its ref.
	ErrCorrupt = errors.New("appstore: stored image is corrupt")

	// ErrAmbiguous reports a ref prefix matching more than one blob.
	ErrAmbiguous = errors.New("appstore: ref prefix is ambiguous")
)

// Options configures a store.
type Options struct {
	// Compression is applied to new blobs. The zero value stores
	// blobs uncompressed. Incompressible images fall back to none
	// regardless.
	Compression CompressionTag

	// Key enables encryption at rest. Nil stores plaintext blobs.
	// Must be exactly KeySize bytes when set. The store borrows the
	// buffer; the caller closes it after closing the store.
	Key *secret.Buffer

	// Logger receives dedup and skip notices. Nil discards.
	Logger *slog.Logger
}

// Store is a content-addressed image archive rooted at a directory.
// Safe for concurrent use: writes are atomic renames and blobs are
// immutable once placed.
type Store struct {
	root        string
	compression CompressionTag
	key         *secret.Buffer
	logger      *slog.Logger
}

// Open opens or creates a store rooted at the given directory.
func Open(root string, opts Options) (*Store, error) {
	if opts.Key != nil && opts.Key.Len() != KeySize {
		return nil, fmt.Errorf("appstore: store key must be %d bytes, got %d", KeySize, opts.Key.Len())
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	for _, dir := range []string{
		root,
		filepath.Join(root, imageDir),
		filepath.Join(root, tmpDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory %s: %w", dir, err)
		}
	}
	return &Store{
		root:        root,
		compression: opts.Compression,
		key:         opts.Key,
		logger:      opts.Logger,
	}, nil
}

// Entry describes one stored blob.
type Entry struct {
	// Ref is the image's content hash.
	Ref Ref

	// ImageBytes is the uncompressed image size.
	ImageBytes int64

	// StoredBytes is the blob size on disk after compression and
	// encryption.
	StoredBytes int64

	// Compression is the tag the payload was stored under.
	Compression CompressionTag
}

// Put archives an image and returns its ref. Storing the same bytes
// twice is a no-op returning the same ref.
func (s *Store) Put(image []byte) (Ref, error) {
	if len(image) == 0 {
		return Ref{}, fmt.Errorf("appstore: cannot store empty image")
	}

	ref := HashImage(image)
	finalPath := s.blobPath(ref)
	if _, err := os.Stat(finalPath); err == nil {
		s.logger.Debug("image already stored", "ref", ref.Short())
		return ref, nil
	}

	tag := s.compression
	payload, err := compress(image, tag)
	if errors.Is(err, errIncompressible) {
		payload, tag = image, CompressionNone
	} else if err != nil {
		return Ref{}, fmt.Errorf("appstore: compressing image: %w", err)
	}

	blob := make([]byte, blobHeaderSize, blobHeaderSize+len(payload))
	blob[0] = blobFormatVersion
	blob[1] = byte(tag)
	binary.BigEndian.PutUint32(blob[2:6], uint32(len(image)))
	blob = append(blob, payload...)

	if s.key != nil {
		blob, err = encryptBlob(blob, s.key, ref)
		if err != nil {
			return Ref{}, fmt.Errorf("appstore: encrypting image: %w", err)
		}
	}

	tmpFile, err := os.CreateTemp(filepath.Join(s.root, tmpDir), "image-*.blob")
	if err != nil {
		return Ref{}, fmt.Errorf("appstore: creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	if _, err := tmpFile.Write(blob); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return Ref{}, fmt.Errorf("appstore: writing blob: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return Ref{}, fmt.Errorf("appstore: closing blob: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		os.Remove(tmpPath)
		return Ref{}, fmt.Errorf("appstore: creating blob directory: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return Ref{}, fmt.Errorf("appstore: placing blob: %w", err)
	}
	return ref, nil
}

// Get returns the image bytes for ref. The decoded bytes are
// re-hashed before returning; a mismatch is ErrCorrupt, never
// silently wrong bytes.
func (s *Store) Get(ref Ref) ([]byte, error) {
	blob, err := os.ReadFile(s.blobPath(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref.Short())
	}
	if err != nil {
		return nil, fmt.Errorf("appstore: reading blob: %w", err)
	}

	if s.key != nil {
		blob, err = decryptBlob(blob, s.key, ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, ref.Short(), err)
		}
	}

	image, _, err := decodeBlob(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, ref.Short(), err)
	}
	if HashImage(image) != ref {
		return nil, fmt.Errorf("%w: %s: content does not match ref", ErrCorrupt, ref.Short())
	}
	return image, nil
}

// Has reports whether a blob exists for ref.
func (s *Store) Has(ref Ref) bool {
	_, err := os.Stat(s.blobPath(ref))
	return err == nil
}

// Delete removes the blob for ref.
func (s *Store) Delete(ref Ref) error {
	err := os.Remove(s.blobPath(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, ref.Short())
	}
	if err != nil {
		return fmt.Errorf("appstore: deleting blob: %w", err)
	}
	return nil
}

// List returns entries for every stored blob, sorted by ref. Foreign
// files under the image directory are skipped with a warning.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	walkRoot := filepath.Join(s.root, imageDir)
	err := filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ref, parseErr := ParseRef(d.Name())
		if parseErr != nil {
			s.logger.Warn("skipping foreign file in image store", "path", path)
			return nil
		}
		info, statErr := d.Info()
		if statErr != nil {
			return statErr
		}
		entry := Entry{Ref: ref, StoredBytes: info.Size()}
		if header, headerErr := s.readHeader(ref); headerErr == nil {
			entry.ImageBytes = int64(header.uncompressedSize)
			entry.Compression = header.tag
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("appstore: listing blobs: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Ref.String() < entries[j].Ref.String()
	})
	return entries, nil
}

// Resolve expands a ref prefix (optionally in "img-" short form) to
// the full ref. At least four hex characters are required.
func (s *Store) Resolve(prefix string) (Ref, error) {
	prefix = strings.TrimPrefix(prefix, "img-")
	if full, err := ParseRef(prefix); err == nil {
		return full, nil
	}
	if len(prefix) < 4 {
		return Ref{}, fmt.Errorf("appstore: ref prefix %q is too short (need at least 4 hex characters)", prefix)
	}

	entries, err := s.List()
	if err != nil {
		return Ref{}, err
	}
	var matches []Ref
	for _, entry := range entries {
		if strings.HasPrefix(entry.Ref.String(), prefix) {
			matches = append(matches, entry.Ref)
		}
	}
	switch len(matches) {
	case 0:
		return Ref{}, fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return Ref{}, fmt.Errorf("%w: %s matches %d images", ErrAmbiguous, prefix, len(matches))
	}
}

type blobHeader struct {
	tag              CompressionTag
	uncompressedSize uint32
}

// readHeader decodes just the blob header for List. Encrypted blobs
// require a full decrypt to reach the header.
func (s *Store) readHeader(ref Ref) (blobHeader, error) {
	blob, err := os.ReadFile(s.blobPath(ref))
	if err != nil {
		return blobHeader{}, err
	}
	if s.key != nil {
		blob, err = decryptBlob(blob, s.key, ref)
		if err != nil {
			return blobHeader{}, err
		}
	}
	if len(blob) < blobHeaderSize || blob[0] != blobFormatVersion {
		return blobHeader{}, fmt.Errorf("bad blob header")
	}
	return blobHeader{
		tag:              CompressionTag(blob[1]),
		uncompressedSize: binary.BigEndian.Uint32(blob[2:6]),
	}, nil
}

// decodeBlob parses a plaintext blob into the original image bytes.
func decodeBlob(blob []byte) ([]byte, CompressionTag, error) {
	if len(blob) < blobHeaderSize {
		return nil, 0, fmt.Errorf("blob is %d bytes, header needs %d", len(blob), blobHeaderSize)
	}
	if blob[0] != blobFormatVersion {
		return nil, 0, fmt.Errorf("blob format version %d is not supported (expected %d)",
			blob[0], blobFormatVersion)
	}
	tag := CompressionTag(blob[1])
	size := binary.BigEndian.Uint32(blob[2:6])
	image, err := decompress(blob[blobHeaderSize:], tag, int(size))
	if err != nil {
		return nil, 0, err
	}
	return image, tag, nil
}

// blobPath fans blobs out across two directory levels so no single
// directory accumulates every blob.
func (s *Store) blobPath(ref Ref) string {
	hex := ref.String()
	return filepath.Join(s.root, imageDir, hex[:2], hex[2:4], hex)
}
