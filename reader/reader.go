// Package reader implements the buffer reader (component C): the state
// machine that turns a sequence of on-disk data files into an ordered
// stream of validated records, coordinating with a writer through a
// shared Ledger.
//
// A Reader is not safe for concurrent use; exactly one goroutine should
// ever call its methods (see the package's single-reader Non-goal).
package reader

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/diskbufio/diskbuf/internal/logging"
	"github.com/diskbufio/diskbuf/internal/vfs"
	"github.com/diskbufio/diskbuf/record"
)

// Ledger is the shared writer/reader coordination state a Reader
// consumes. The default implementation is internal/ledger.FileLedger;
// callers may substitute any type satisfying this interface.
type Ledger interface {
	CurrentReaderFileID() uint64
	IncrementReaderFileID() error
	CurrentWriterFileID() uint64
	LastReaderRecordID() uint64
	SetLastReaderRecordID(id uint64) error
	ReaderDataFilePath() string
	Flush() error
	WaitForWriter(ctx context.Context) error
	NotifyReaderWaiters()
}

// Reader reads records from an append-only, segmented, checksummed
// buffer, one at a time, advancing and persisting progress through a
// Ledger as it goes.
type Reader struct {
	ledger Ledger
	fs     vfs.FS

	maxRecordSize uint32
	logger        logging.Logger
	reporter      Reporter
	instanceID    uuid.UUID

	fr                 *fileReader
	lastReaderRecordID uint64
	readyToRead        bool
}

// New constructs a Reader against ledger and fs. The returned Reader
// holds no open file handle until SeekToNextRecord or Next is called.
func New(ledger Ledger, fs vfs.FS, opts ...Option) *Reader {
	r := &Reader{
		ledger:        ledger,
		fs:            fs,
		maxRecordSize: DefaultMaxRecordSize,
		logger:        logging.Discard,
		reporter:      noopReporter{},
		instanceID:    uuid.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SeekToNextRecord replays (without delivering to the caller) every
// record the ledger has already acknowledged, so the reader's internal
// cursor lines up with ledger.LastReaderRecordID() before the first
// external Next call. It must be called before any call to Next, and is
// idempotent after its first successful return.
func (r *Reader) SeekToNextRecord(ctx context.Context) error {
	if r.readyToRead {
		return nil
	}

	target := r.ledger.LastReaderRecordID()
	for r.lastReaderRecordID < target {
		if _, err := r.next(ctx); err != nil {
			return err
		}
	}

	r.readyToRead = true
	return nil
}

// Next returns the next record in the buffer, blocking until one is
// available or ctx is canceled. The returned Archived is valid only
// until the next call to Next on the same Reader; callers that need to
// retain the payload must copy it.
func (r *Reader) Next(ctx context.Context) (*record.Archived, error) {
	if !r.readyToRead {
		return nil, ErrNotSeeked
	}
	return r.next(ctx)
}

// next is the primary read loop (§4.3.3). Each call returns exactly one
// record, or blocks at a suspension point (open, wait-for-writer,
// roll-to-next-file) until one becomes available.
func (r *Reader) next(ctx context.Context) (*record.Archived, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := r.ensureReadyForRead(ctx); err != nil {
			return nil, err
		}

		// Snapshot ledger ids before reading: this is what lets the
		// None branch below tell "caught up within this file" (ids
		// equal) apart from "this file is fully drained" (writer has
		// already moved on) without a second read attempt.
		writerID := r.ledger.CurrentWriterFileID()
		readerID := r.ledger.CurrentReaderFileID()

		ent, err := r.fr.tryNextRecord()
		if err != nil {
			return nil, err
		}

		switch ent.status {
		case entryValid:
			if err := r.updateReaderLastRecordID(ent.token.recordID); err != nil {
				return nil, err
			}
			return r.fr.readArchive(ent.token), nil

		case entryCorrupted, entryFailedDeserialization:
			r.reporter.OnCorruption(readerID)
			r.logger.Warnf("%s[%s] corrupt record in file %d, rolling to next file",
				logging.NSReader, r.instanceID, readerID)
			if err := r.rollToNextDataFile(); err != nil {
				return nil, err
			}
			continue

		default: // entryNone
			if err := r.ledger.WaitForWriter(ctx); err != nil {
				return nil, err
			}
			if writerID != readerID {
				if err := r.rollToNextDataFile(); err != nil {
					return nil, err
				}
			}
			continue
		}
	}
}

// ensureReadyForRead opens the current reader data file if one is not
// already open, waiting for the writer to create it if it does not yet
// exist (the fresh-buffer case).
func (r *Reader) ensureReadyForRead(ctx context.Context) error {
	if r.fr != nil {
		return nil
	}

	for {
		path := r.ledger.ReaderDataFilePath()
		f, err := r.fs.Open(path)
		if err == nil {
			r.fr = newFileReader(f, r.maxRecordSize)
			return nil
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("reader: open %s: %w", path, err)
		}
		if err := r.ledger.WaitForWriter(ctx); err != nil {
			return err
		}
	}
}

// rollToNextDataFile releases the current file, deletes it, advances
// and persists reader_current_file_id, and wakes any writer blocked
// waiting to reuse the drained file id.
func (r *Reader) rollToNextDataFile() error {
	path := r.ledger.ReaderDataFilePath()

	if r.fr != nil {
		if err := r.fr.Close(); err != nil {
			return fmt.Errorf("reader: close %s: %w", path, err)
		}
		r.fr = nil
	}

	if err := r.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reader: remove %s: %w", path, err)
	}

	if err := r.ledger.IncrementReaderFileID(); err != nil {
		return fmt.Errorf("reader: advance reader file id: %w", err)
	}

	r.ledger.NotifyReaderWaiters()

	newFileID := r.ledger.CurrentReaderFileID()
	r.reporter.OnFileRolled(newFileID)
	r.logger.Infof("%s[%s] rolled to next data file (fileID=%d)", logging.NSReader, r.instanceID, newFileID)
	return nil
}

// updateReaderLastRecordID folds a newly delivered record id into the
// reader's bookkeeping (§4.3.4).
func (r *Reader) updateReaderLastRecordID(id uint64) error {
	previous := r.lastReaderRecordID
	r.lastReaderRecordID = id

	if !r.readyToRead {
		// Restart seek replay: we're fast-forwarding past records the
		// ledger already acknowledged. Any corruption encountered here
		// was already handled (or not) on the run that produced the
		// persisted last_reader_record_id; re-detecting it now must
		// not emit a second skip event.
		return nil
	}

	delta := id - previous
	switch {
	case delta == 0:
		msg := fmt.Sprintf("invariant violation: record id did not advance (previous=%d current=%d)", previous, id)
		r.logger.Fatalf("%s[%s] %s", logging.NSReader, r.instanceID, msg)
		panic("reader: " + msg)

	case delta == 1:
		return r.ledger.SetLastReaderRecordID(id)

	default:
		// A gap: delta-1 records were skipped, almost always because a
		// corrupted record caused a file roll. The one exception is
		// delta == id, which means previous == 0: there is no real
		// earlier id to compare against (this is the first record this
		// reader instance has ever delivered, typically right after a
		// restart-seek baseline), so it is not a corruption skip.
		if delta != id {
			r.reporter.OnRecordsSkipped(delta - 1)
		}
		return r.ledger.SetLastReaderRecordID(id)
	}
}

// Close releases the reader's open file handle, if any. It does not
// flush the ledger; the last successfully delivered record's id is
// already persisted.
func (r *Reader) Close() error {
	if r.fr == nil {
		return nil
	}
	err := r.fr.Close()
	r.fr = nil
	return err
}
