// Package ledger provides the shared writer/reader coordination state a
// buffer reader depends on, plus a concrete, file-backed default
// implementation so the reader is runnable and testable standalone.
//
// The persistence format below is an implementation detail of this
// package, not a cross-implementation contract: any type satisfying
// Ledger can stand in for FileLedger.
package ledger

import "context"

// Ledger is the set of operations the buffer reader consumes. Each field
// behind these operations has exactly one mutator (the single-writer or
// single-reader owning it); see FileLedger for the field-ownership rule
// in practice.
type Ledger interface {
	// CurrentReaderFileID returns the data file ID the reader is
	// currently positioned on.
	CurrentReaderFileID() uint64

	// IncrementReaderFileID advances the reader to the next data file
	// and persists the change.
	IncrementReaderFileID() error

	// CurrentWriterFileID returns the data file ID the writer is
	// currently appending to.
	CurrentWriterFileID() uint64

	// LastReaderRecordID returns the ID of the last record the reader
	// has durably acknowledged.
	LastReaderRecordID() uint64

	// SetLastReaderRecordID persists the ID of the last record the
	// reader has durably acknowledged.
	SetLastReaderRecordID(id uint64) error

	// ReaderDataFilePath returns the path of the data file the reader
	// is currently (or should be) reading from.
	ReaderDataFilePath() string

	// Flush makes any pending state mutations durable.
	Flush() error

	// WaitForWriter blocks until the writer has made progress (or ctx is
	// canceled). A notification issued before the call is observed
	// immediately: this is a level-triggered wakeup, not edge-triggered.
	WaitForWriter(ctx context.Context) error

	// NotifyReaderWaiters wakes any goroutine blocked in WaitForReader.
	NotifyReaderWaiters()
}
