package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/japaniel/lexigate/pkg/db"
)

// FindingWriter buffers findings and commits them in batches, one
// transaction per batch. Batches are committed by a single goroutine in
// submission order.
type FindingWriter struct {
	mu     sync.Mutex
	buf    []db.Finding
	cap    int
	closed bool
	wg     sync.WaitGroup

	commitCh chan []db.Finding
	conn     *sql.DB
	OnError  func(error)

	written atomic.Int64

	// lastErr stores the first asynchronous error seen by the writer. Protected by errMu.
	errMu   sync.Mutex
	lastErr error
}

// NewFindingWriter creates a FindingWriter that flushes every bufferSize findings.
func NewFindingWriter(conn *sql.DB, bufferSize int) *FindingWriter {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	fw := &FindingWriter{
		buf:      make([]db.Finding, 0, bufferSize),
		cap:      bufferSize,
		commitCh: make(chan []db.Finding, 2), // Buffer a couple of batches
		conn:     conn,
	}
	fw.wg.Add(1)
	go fw.committer()
	return fw
}

// Write enqueues one finding.
func (fw *FindingWriter) Write(f db.Finding) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.closed {
		return ErrBatchWriterClosed
	}
	fw.buf = append(fw.buf, f)
	if len(fw.buf) >= fw.cap {
		fw.flushLocked()
	}
	return nil
}

// flushLocked assumes fw.mu is held. A busy committer blocks the caller,
// which propagates backpressure to Write.
func (fw *FindingWriter) flushLocked() {
	if len(fw.buf) == 0 {
		return
	}
	batch := fw.buf
	fw.buf = make([]db.Finding, 0, fw.cap)
	fw.commitCh <- batch
}

func (fw *FindingWriter) committer() {
	defer fw.wg.Done()
	for batch := range fw.commitCh {
		if err := fw.executeBatch(batch); err != nil {
			fw.errMu.Lock()
			if fw.lastErr == nil {
				fw.lastErr = err
			}
			fw.errMu.Unlock()
			if fw.OnError != nil {
				fw.OnError(err)
			}
			continue
		}
		fw.written.Add(int64(len(batch)))
	}
}

func (fw *FindingWriter) executeBatch(batch []db.Finding) error {
	tx, err := fw.conn.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	for _, f := range batch {
		if err := db.InsertFinding(tx, f); err != nil {
			return fmt.Errorf("insert %s finding: %w", f.Kind, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch (%d findings): %w", len(batch), err)
	}
	return nil
}

// Written returns the number of findings committed so far.
func (fw *FindingWriter) Written() int { return int(fw.written.Load()) }

// Close flushes pending findings, waits for the committer and returns the
// first commit error, if any.
func (fw *FindingWriter) Close() error {
	fw.mu.Lock()
	if fw.closed {
		fw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	fw.closed = true
	fw.flushLocked()
	fw.mu.Unlock()

	close(fw.commitCh)
	fw.wg.Wait()

	fw.errMu.Lock()
	defer fw.errMu.Unlock()
	return fw.lastErr
}

var ErrBatchWriterClosed = &BatchWriterError{"finding writer closed"}

type BatchWriterError struct{ msg string }

func (e *BatchWriterError) Error() string { return e.msg }
