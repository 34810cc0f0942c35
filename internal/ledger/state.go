package ledger

import (
	"errors"
	"fmt"

	"github.com/diskbufio/diskbuf/internal/encoding"
)

// Tags for the persisted ledger state file. Encoded as a flat sequence of
// tag+varint pairs terminated by tagTerminate, in the manner the teacher's
// MANIFEST encodes VersionEdit fields (see DESIGN.md).
const (
	tagTerminate           = 0
	tagWriterCurrentFileID = 1
	tagReaderCurrentFileID = 2
	tagLastReaderRecordID  = 3
)

// ErrCorruptState is returned when the persisted state file cannot be
// decoded.
var ErrCorruptState = errors.New("ledger: corrupt state file")

// state is the set of fields the ledger persists. Each field has exactly
// one mutator: the writer owns writerCurrentFileID, the reader owns
// readerCurrentFileID and lastReaderRecordID.
type state struct {
	writerCurrentFileID uint64
	readerCurrentFileID uint64
	lastReaderRecordID  uint64
}

func (s *state) encode() []byte {
	var dst []byte
	dst = encoding.AppendVarint32(dst, tagWriterCurrentFileID)
	dst = encoding.AppendVarint64(dst, s.writerCurrentFileID)
	dst = encoding.AppendVarint32(dst, tagReaderCurrentFileID)
	dst = encoding.AppendVarint64(dst, s.readerCurrentFileID)
	dst = encoding.AppendVarint32(dst, tagLastReaderRecordID)
	dst = encoding.AppendVarint64(dst, s.lastReaderRecordID)
	dst = encoding.AppendVarint32(dst, tagTerminate)
	return dst
}

func decodeState(data []byte) (*state, error) {
	s := &state{}
	for len(data) > 0 {
		tag, n, err := encoding.DecodeVarint32(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
		}
		data = data[n:]

		if tag == tagTerminate {
			return s, nil
		}

		value, n, err := encoding.DecodeVarint64(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
		}
		data = data[n:]

		switch tag {
		case tagWriterCurrentFileID:
			s.writerCurrentFileID = value
		case tagReaderCurrentFileID:
			s.readerCurrentFileID = value
		case tagLastReaderRecordID:
			s.lastReaderRecordID = value
		default:
			return nil, fmt.Errorf("%w: unknown tag %d", ErrCorruptState, tag)
		}
	}
	return nil, fmt.Errorf("%w: missing terminator", ErrCorruptState)
}
