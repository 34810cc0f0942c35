// Package record implements the on-disk archive format for a single buffer
// record: a self-describing, checksummed, fixed-header layout that can be
// validated and decoded without copying the payload.
//
// Archive Format:
//
//	+0  u32  checksum  (big-endian)
//	+4  u64  id        (big-endian)
//	+12 u8[] payload   (remainder of the archive)
//
// The checksum is CRC32C(be64(id) || payload). Endianness is big-endian
// throughout, matching the big-endian frame length prefix that precedes
// the archive on disk (see package reader), so the whole record has one
// byte order.
//
// # Warning
//
//   - Do not add fields to the header.
//   - Do not remove fields from the header.
//   - Do not change the type of a header field.
//   - Do not change the order of the header fields.
//
// Doing any of the above changes the serialized representation and breaks
// every archive already written to disk.
package record

import (
	"github.com/diskbufio/diskbuf/internal/checksum"
	"github.com/diskbufio/diskbuf/internal/encoding"
)

// HeaderSize is the size, in bytes, of the fixed archive header
// (checksum + id) that precedes the payload.
const HeaderSize = 4 + 8

// RecordStatus describes the outcome of validating a byte buffer as a
// record archive.
type RecordStatus int

const (
	// StatusValid indicates the archive decoded and its checksum matched.
	StatusValid RecordStatus = iota
	// StatusCorrupted indicates the archive decoded but its checksum did
	// not match the recalculated one.
	StatusCorrupted
	// StatusFailedDeserialization indicates the buffer was too short to
	// even contain a fixed header, so no id/checksum could be extracted.
	StatusFailedDeserialization
)

// String returns a human-readable name for the status, for log messages.
func (s RecordStatus) String() string {
	switch s {
	case StatusValid:
		return "Valid"
	case StatusCorrupted:
		return "Corrupted"
	case StatusFailedDeserialization:
		return "FailedDeserialization"
	default:
		return "Unknown"
	}
}

// Archived is a validated, zero-copy view over a record archive. Its
// Payload() slice aliases the buffer it was decoded from; callers must not
// retain it once that buffer is reused (see package reader's readToken).
type Archived struct {
	checksum uint32
	id       uint64
	payload  []byte
}

// ID returns the record's monotonic ID.
func (a *Archived) ID() uint64 { return a.id }

// Checksum returns the stored checksum.
func (a *Archived) Checksum() uint32 { return a.checksum }

// Payload returns the record's payload. The returned slice aliases the
// buffer the archive was decoded from.
func (a *Archived) Payload() []byte { return a.payload }

// Encode appends the archive encoding of (id, payload) to dst and returns
// the extended slice. It does not write the frame length prefix; see
// package reader for the on-disk frame that wraps this archive.
func Encode(dst []byte, id uint64, payload []byte) []byte {
	cs := checksumOf(id, payload)

	start := len(dst)
	dst = append(dst, make([]byte, HeaderSize)...)
	encoding.EncodeFixed32BE(dst[start:start+4], cs)
	encoding.EncodeFixed64BE(dst[start+4:start+12], id)
	dst = append(dst, payload...)
	return dst
}

// TryAsArchive validates buf as a record archive starting at index 0.
//
// This is the only place a record's checksum is verified; every other
// consumer of a decoded Archived trusts it was validated here.
func TryAsArchive(buf []byte) (*Archived, RecordStatus) {
	if len(buf) < HeaderSize {
		return nil, StatusFailedDeserialization
	}

	storedChecksum := encoding.DecodeFixed32BE(buf[0:4])
	id := encoding.DecodeFixed64BE(buf[4:12])
	payload := buf[HeaderSize:]

	calculated := checksumOf(id, payload)
	if calculated != storedChecksum {
		return nil, StatusCorrupted
	}

	return &Archived{checksum: storedChecksum, id: id, payload: payload}, StatusValid
}

func checksumOf(id uint64, payload []byte) uint32 {
	var idBuf [8]byte
	encoding.EncodeFixed64BE(idBuf[:], id)
	cs := checksum.Value(idBuf[:])
	return checksum.Extend(cs, payload)
}

