package reader

import (
	"errors"
	"io"

	"github.com/diskbufio/diskbuf/internal/encoding"
	"github.com/diskbufio/diskbuf/internal/vfs"
	"github.com/diskbufio/diskbuf/record"
)

// lengthPrefixSize is the size, in bytes, of the big-endian frame length
// that precedes every archive on disk.
const lengthPrefixSize = 4

// entryStatus is the outcome of a single tryNextRecord call.
type entryStatus int

const (
	// entryNone means a clean, zero-byte end of file at a frame
	// boundary: nothing was read, nothing was consumed.
	entryNone entryStatus = iota
	// entryValid means a complete frame was read and its archive
	// validated; readToken identifies the record now resident in the
	// file reader's scratch buffer.
	entryValid
	// entryCorrupted means a frame was read but its archive's checksum
	// did not match, or the frame was truncated (partial length prefix
	// or short payload) — a truncated frame is corruption, not clean
	// EOF, once any bytes of it have been consumed.
	entryCorrupted
	// entryFailedDeserialization means the archive was too short to
	// contain a fixed header at all.
	entryFailedDeserialization
)

// readToken is a single-use, non-transferable capability tying a
// subsequent readArchive call to exactly the record last validated by
// tryNextRecord. It exists so the caller can hold a reference into the
// file reader's scratch buffer without copying the payload, while still
// catching use of a stale reference as a programmer error.
type readToken struct {
	recordID uint64
	valid    bool
}

// RecordID returns the id of the record this token was issued for.
func (t readToken) RecordID() uint64 { return t.recordID }

type entry struct {
	status entryStatus
	token  readToken
}

// fileReader is the file-scoped record reader (component B): a
// length-delimited frame reader over one open data file, with a reused
// scratch buffer holding the archive bytes of the most recently
// validated record.
type fileReader struct {
	file          vfs.SequentialFile
	maxRecordSize uint32

	scratch         []byte
	archive         *record.Archived
	currentRecordID uint64
	haveCurrent     bool
}

func newFileReader(f vfs.SequentialFile, maxRecordSize uint32) *fileReader {
	return &fileReader{file: f, maxRecordSize: maxRecordSize}
}

// tryNextRecord reads and validates the next frame. It never blocks
// waiting for bytes that have not been written yet: a file that is
// currently at a clean frame boundary (zero bytes available for the
// length prefix) yields entryNone, so the caller can decide whether to
// wait for the writer or roll to the next file. Anything less than a
// complete frame beyond that point is corruption (see record-reader
// Non-goals: there is no per-frame resynchronization heuristic).
func (fr *fileReader) tryNextRecord() (entry, error) {
	var lenBuf [lengthPrefixSize]byte
	n, err := io.ReadFull(fr.file, lenBuf[:])
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return entry{status: entryNone}, nil
		}
		if isShortFrameError(err) {
			fr.haveCurrent = false
			return entry{status: entryCorrupted}, nil
		}
		return entry{}, err
	}

	length := encoding.DecodeFixed32BE(lenBuf[:])
	if length > fr.maxRecordSize {
		// Reject before allocating a buffer for the claimed length (P7).
		fr.haveCurrent = false
		return entry{status: entryCorrupted}, nil
	}

	if cap(fr.scratch) < int(length) {
		fr.scratch = make([]byte, length)
	} else {
		fr.scratch = fr.scratch[:length]
	}

	if _, err := io.ReadFull(fr.file, fr.scratch); err != nil {
		fr.haveCurrent = false
		if isShortFrameError(err) {
			return entry{status: entryCorrupted}, nil
		}
		return entry{}, err
	}

	archive, status := record.TryAsArchive(fr.scratch)
	switch status {
	case record.StatusValid:
		fr.archive = archive
		fr.currentRecordID = archive.ID()
		fr.haveCurrent = true
		return entry{status: entryValid, token: readToken{recordID: archive.ID(), valid: true}}, nil
	case record.StatusCorrupted:
		fr.haveCurrent = false
		return entry{status: entryCorrupted}, nil
	default:
		fr.haveCurrent = false
		return entry{status: entryFailedDeserialization}, nil
	}
}

func isShortFrameError(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// readArchive returns the archive validated by the tryNextRecord call
// that produced token. token must be the one returned by the
// most recent tryNextRecord call; any other use — a token from an
// earlier call, or the zero value — is a programmer error, since the
// scratch buffer it referenced has since been overwritten or was never
// populated.
func (fr *fileReader) readArchive(token readToken) *record.Archived {
	if !token.valid || !fr.haveCurrent || token.recordID != fr.currentRecordID {
		panic("reader: use of an expired or invalid read token")
	}
	return fr.archive
}

// Close releases the underlying file handle.
func (fr *fileReader) Close() error {
	return fr.file.Close()
}
