// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/warden-project/warden/lib/clock"
	"github.com/warden-project/warden/lib/codec"
)

const (
	defaultRingSize      = 256
	defaultQueueDepth    = 256
	defaultFlushInterval = time.Second

	// maxRecordSize bounds one journal record. A length prefix past
	// this is corruption, not a record.
	maxRecordSize = 1 << 20
)

// ErrCorrupt reports a journal whose interior (not its tail) cannot
// be decoded.
var ErrCorrupt = errors.New("eventlog: corrupt journal")

// Options configures a journal.
type Options struct {
	// Clock stamps events. Nil means the real clock.
	Clock clock.Clock

	// Logger receives write failures and drop warnings. Nil discards.
	Logger *slog.Logger

	// RingSize is the in-memory tail capacity. Zero means 256.
	RingSize int

	// QueueDepth bounds queued disk writes. Zero means 256. When the
	// queue is full, events still enter the ring but their disk
	// write is dropped and counted.
	QueueDepth int

	// FlushInterval is the fsync cadence. Zero means one second.
	FlushInterval time.Duration
}

// Log is an append-only decision journal. Construct with Open, close
// with Close.
type Log struct {
	clk           clock.Clock
	logger        *slog.Logger
	flushInterval time.Duration

	mu       sync.Mutex
	seq      uint64
	ring     []Event
	ringNext int
	ringFull bool
	closed   bool
	dropped  uint64

	writes chan Event
	done   chan struct{}
	file   *os.File
}

// Open opens or creates the journal at path, replays it to continue
// the sequence and warm the ring, and starts the writer. A torn
// final record (a crash mid-write) is truncated away with a warning.
func Open(path string, opts Options) (*Log, error) {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.RingSize <= 0 {
		opts.RingSize = defaultRingSize
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = defaultQueueDepth
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("eventlog: opening %s: %w", path, err)
	}

	events, goodLength, err := readRecords(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("eventlog: replaying %s: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("eventlog: stat %s: %w", path, err)
	}
	if goodLength < info.Size() {
		opts.Logger.Warn("truncating torn journal tail",
			"path", path,
			"good_bytes", goodLength,
			"file_bytes", info.Size())
		if err := file.Truncate(goodLength); err != nil {
			file.Close()
			return nil, fmt.Errorf("eventlog: truncating %s: %w", path, err)
		}
	}
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		file.Close()
		return nil, fmt.Errorf("eventlog: seeking %s: %w", path, err)
	}

	l := &Log{
		clk:           opts.Clock,
		logger:        opts.Logger,
		flushInterval: opts.FlushInterval,
		ring:          make([]Event, opts.RingSize),
		writes:        make(chan Event, opts.QueueDepth),
		done:          make(chan struct{}),
		file:          file,
	}
	for _, e := range events {
		if e.Seq > l.seq {
			l.seq = e.Seq
		}
		l.ringInsertLocked(e)
	}
	go l.run()
	return l, nil
}

// Append stamps e with the next sequence number and the current time,
// records it in the ring, and queues its disk write. Never blocks; a
// full write queue drops the disk copy and counts it.
func (l *Log) Append(e Event) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.seq++
	e.Seq = l.seq
	e.Time = l.clk.Now().UnixMilli()
	l.ringInsertLocked(e)
	l.mu.Unlock()

	select {
	case l.writes <- e:
	default:
		l.mu.Lock()
		l.dropped++
		dropped := l.dropped
		l.mu.Unlock()
		if dropped == 1 || dropped%100 == 0 {
			l.logger.Warn("journal write queue full, dropping disk copies", "dropped", dropped)
		}
	}
}

// ringInsertLocked requires l.mu when the log is live; Open calls it
// before the writer starts.
func (l *Log) ringInsertLocked(e Event) {
	l.ring[l.ringNext] = e
	l.ringNext++
	if l.ringNext == len(l.ring) {
		l.ringNext = 0
		l.ringFull = true
	}
}

// Tail returns up to n most recent events, oldest first.
func (l *Log) Tail(n int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	size := l.ringNext
	if l.ringFull {
		size = len(l.ring)
	}
	if n > size {
		n = size
	}
	if n <= 0 {
		return nil
	}
	out := make([]Event, 0, n)
	start := l.ringNext - n
	if start < 0 {
		start += len(l.ring)
	}
	for i := 0; i < n; i++ {
		out = append(out, l.ring[(start+i)%len(l.ring)])
	}
	return out
}

// Seq returns the last assigned sequence number.
func (l *Log) Seq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// Close stops accepting events, drains queued writes to disk, syncs,
// and closes the file.
func (l *Log) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	close(l.writes)
	<-l.done

	syncErr := l.file.Sync()
	closeErr := l.file.Close()
	if syncErr != nil {
		return fmt.Errorf("eventlog: syncing journal: %w", syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("eventlog: closing journal: %w", closeErr)
	}
	return nil
}

func (l *Log) run() {
	defer close(l.done)
	ticker := l.clk.NewTicker(l.flushInterval)
	defer ticker.Stop()

	dirty := false
	for {
		select {
		case e, ok := <-l.writes:
			if !ok {
				return
			}
			if err := l.writeRecord(e); err != nil {
				l.logger.Error("journal write failed", "seq", e.Seq, "error", err)
				continue
			}
			dirty = true
		case <-ticker.C:
			if !dirty {
				continue
			}
			if err := l.file.Sync(); err != nil {
				l.logger.Error("journal sync failed", "error", err)
				continue
			}
			dirty = false
		}
	}
}

func (l *Log) writeRecord(e Event) error {
	body, err := codec.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(body)))
	if _, err := l.file.Write(prefix[:]); err != nil {
		return err
	}
	if _, err := l.file.Write(body); err != nil {
		return err
	}
	return nil
}

// ReadFile replays a journal file and returns its events. A torn
// final record is ignored, matching what Open would truncate; damage
// anywhere else is ErrCorrupt.
func ReadFile(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("eventlog: opening %s: %w", path, err)
	}
	defer file.Close()

	events, _, err := readRecords(file)
	if err != nil {
		return nil, fmt.Errorf("eventlog: reading %s: %w", path, err)
	}
	return events, nil
}

// readRecords reads length-prefixed records from the start of f. It
// returns the decoded events and the byte offset after the last whole
// record. A short read at the end is a torn tail, not an error; a
// record that decodes to garbage or declares an absurd length is
// ErrCorrupt.
func readRecords(f *os.File) ([]Event, int64, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, 0, err
	}

	var (
		events []Event
		offset int64
		prefix [4]byte
	)
	for {
		if _, err := io.ReadFull(f, prefix[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return events, offset, nil
			}
			return nil, 0, err
		}
		length := binary.BigEndian.Uint32(prefix[:])
		if length > maxRecordSize {
			return nil, 0, fmt.Errorf("%w: record at offset %d declares %d bytes", ErrCorrupt, offset, length)
		}
		body := make([]byte, length)
		if _, err := io.ReadFull(f, body); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return events, offset, nil
			}
			return nil, 0, err
		}
		var e Event
		if err := codec.Unmarshal(body, &e); err != nil {
			return nil, 0, fmt.Errorf("%w: record at offset %d: %v", ErrCorrupt, offset, err)
		}
		events = append(events, e)
		offset += 4 + int64(length)
	}
}
