package ledger

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/diskbufio/diskbuf/internal/logging"
	"github.com/diskbufio/diskbuf/internal/vfs"
)

const stateFileName = "ledger.state"

// dataFileName returns the name of the data file for the given file ID.
func dataFileName(fileID uint64) string {
	return fmt.Sprintf("buffer-%08d.dat", fileID)
}

// Option configures a FileLedger at construction time.
type Option func(*FileLedger)

// WithLogger sets the logger used for flush diagnostics.
func WithLogger(logger logging.Logger) Option {
	return func(l *FileLedger) {
		l.logger = logging.OrDefault(logger)
	}
}

// FileLedger is the default, file-backed Ledger implementation. It
// persists {writerCurrentFileID, readerCurrentFileID,
// lastReaderRecordID} to a small tagged state file in dir, flushed
// atomically (write to a temp file, fsync, rename, fsync parent dir), and
// holds an advisory lock on a lock file beside it (ledger.state.lock) from
// Open until Close, so a second Open of the same dir fails loudly instead
// of silently violating the single-reader rule.
type FileLedger struct {
	fs     vfs.FS
	dir    string
	logger logging.Logger

	mu    sync.Mutex
	state state

	lock io.Closer

	// writerWakeup is waited on by the reader and notified by the writer.
	writerWakeup *Notifier
	// readerWakeup is waited on by the writer and notified by the reader.
	readerWakeup *Notifier
}

// Open opens (or creates) a ledger rooted at dir, acquiring the
// single-owner advisory lock on its state file's lock file.
func Open(fsys vfs.FS, dir string, opts ...Option) (*FileLedger, error) {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("ledger: create dir %s: %w", dir, err)
	}

	statePath := filepath.Join(dir, stateFileName)
	lockPath := statePath + ".lock"

	lock, err := fsys.Lock(lockPath)
	if err != nil {
		return nil, fmt.Errorf("ledger: acquire lock: %w", err)
	}

	l := &FileLedger{
		fs:           fsys,
		dir:          dir,
		logger:       logging.Discard,
		lock:         lock,
		writerWakeup: NewNotifier(),
		readerWakeup: NewNotifier(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if fsys.Exists(statePath) {
		st, err := l.loadState(statePath)
		if err != nil {
			lock.Close()
			return nil, err
		}
		l.state = *st
	}

	return l, nil
}

func (l *FileLedger) loadState(path string) (*state, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open state file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("ledger: read state file: %w", err)
	}

	return decodeState(data)
}

// Flush makes the current in-memory state durable: write to a temp file,
// fsync, rename over the real state file, fsync the parent directory.
func (l *FileLedger) Flush() error {
	l.mu.Lock()
	data := l.state.encode()
	writerFileID := l.state.writerCurrentFileID
	readerFileID := l.state.readerCurrentFileID
	lastReaderRecordID := l.state.lastReaderRecordID
	l.mu.Unlock()

	statePath := filepath.Join(l.dir, stateFileName)
	tmpPath := statePath + ".tmp"

	f, err := l.fs.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ledger: create temp state file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("ledger: write temp state file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("ledger: sync temp state file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("ledger: close temp state file: %w", err)
	}

	if err := l.fs.Rename(tmpPath, statePath); err != nil {
		return fmt.Errorf("ledger: rename state file: %w", err)
	}
	if err := l.fs.SyncDir(l.dir); err != nil {
		return fmt.Errorf("ledger: sync ledger dir: %w", err)
	}

	l.logger.Debugf("%sflushed state (writerFileID=%d readerFileID=%d lastReaderRecordID=%d)",
		logging.NSLedger, writerFileID, readerFileID, lastReaderRecordID)
	return nil
}

// Close releases the ledger's advisory lock. It does not flush; callers
// that need a final durable state must call Flush first.
func (l *FileLedger) Close() error {
	return l.lock.Close()
}

// CurrentReaderFileID returns the data file ID the reader is positioned on.
func (l *FileLedger) CurrentReaderFileID() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.readerCurrentFileID
}

// IncrementReaderFileID advances the reader to the next data file and
// persists the change. Owned exclusively by the reader.
func (l *FileLedger) IncrementReaderFileID() error {
	l.mu.Lock()
	l.state.readerCurrentFileID++
	l.mu.Unlock()
	return l.Flush()
}

// CurrentWriterFileID returns the data file ID the writer is appending to.
func (l *FileLedger) CurrentWriterFileID() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.writerCurrentFileID
}

// IncrementWriterFileID advances the writer to the next data file and
// persists the change. Owned exclusively by the writer; the reader never
// calls this.
func (l *FileLedger) IncrementWriterFileID() error {
	l.mu.Lock()
	l.state.writerCurrentFileID++
	l.mu.Unlock()
	return l.Flush()
}

// LastReaderRecordID returns the ID of the last record the reader has
// durably acknowledged.
func (l *FileLedger) LastReaderRecordID() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.lastReaderRecordID
}

// SetLastReaderRecordID persists the ID of the last record the reader has
// durably acknowledged. Owned exclusively by the reader.
func (l *FileLedger) SetLastReaderRecordID(id uint64) error {
	l.mu.Lock()
	l.state.lastReaderRecordID = id
	l.mu.Unlock()
	return l.Flush()
}

// ReaderDataFilePath returns the path of the data file the reader is
// currently (or should be) reading from.
func (l *FileLedger) ReaderDataFilePath() string {
	return filepath.Join(l.dir, dataFileName(l.CurrentReaderFileID()))
}

// WriterDataFilePath returns the path of the data file the writer is
// currently (or should be) appending to.
func (l *FileLedger) WriterDataFilePath() string {
	return filepath.Join(l.dir, dataFileName(l.CurrentWriterFileID()))
}

// WaitForWriter blocks until the writer has made progress (or ctx is
// canceled).
func (l *FileLedger) WaitForWriter(ctx context.Context) error {
	return l.writerWakeup.Wait(ctx)
}

// NotifyReaderWaiters wakes any goroutine blocked in WaitForReader. Called
// by the reader after it makes progress the writer might be blocked on
// (e.g. freeing a file ID by finishing a data file).
func (l *FileLedger) NotifyReaderWaiters() {
	l.readerWakeup.Notify()
}

// WaitForReader blocks until the reader has made progress (or ctx is
// canceled). Exists for a writer built against the same ledger; the
// reader never calls this.
func (l *FileLedger) WaitForReader(ctx context.Context) error {
	return l.readerWakeup.Wait(ctx)
}

// NotifyWriterWaiters wakes any goroutine blocked in WaitForWriter. Called
// by the writer after it flushes new data the reader might be waiting on.
func (l *FileLedger) NotifyWriterWaiters() {
	l.writerWakeup.Notify()
}
