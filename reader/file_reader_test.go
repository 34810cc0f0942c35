package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diskbufio/diskbuf/internal/encoding"
	"github.com/diskbufio/diskbuf/internal/vfs"
	"github.com/diskbufio/diskbuf/record"
)

// buildFrame returns the on-disk frame (be32 length prefix + archive)
// for one record.
func buildFrame(id uint64, payload []byte) []byte {
	archive := record.Encode(nil, id, payload)
	var lenBuf [4]byte
	encoding.EncodeFixed32BE(lenBuf[:], uint32(len(archive)))
	return append(lenBuf[:], archive...)
}

func openFixture(t *testing.T, data []byte) vfs.SequentialFile {
	t.Helper()
	fs := vfs.NewMemFS()
	f, err := fs.Create("fixture")
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	sf, err := fs.Open("fixture")
	require.NoError(t, err)
	return sf
}

func TestFileReader_RoundTrip(t *testing.T) {
	var buf []byte
	buf = append(buf, buildFrame(1, []byte("hello"))...)
	buf = append(buf, buildFrame(2, []byte("world"))...)

	fr := newFileReader(openFixture(t, buf), DefaultMaxRecordSize)

	ent, err := fr.tryNextRecord()
	require.NoError(t, err)
	require.Equal(t, entryValid, ent.status)
	archive := fr.readArchive(ent.token)
	assert.Equal(t, uint64(1), archive.ID())
	assert.Equal(t, []byte("hello"), archive.Payload())

	ent, err = fr.tryNextRecord()
	require.NoError(t, err)
	require.Equal(t, entryValid, ent.status)
	archive = fr.readArchive(ent.token)
	assert.Equal(t, uint64(2), archive.ID())
	assert.Equal(t, []byte("world"), archive.Payload())

	ent, err = fr.tryNextRecord()
	require.NoError(t, err)
	assert.Equal(t, entryNone, ent.status)
}

func TestFileReader_EmptyFileYieldsNone(t *testing.T) {
	fr := newFileReader(openFixture(t, nil), DefaultMaxRecordSize)
	ent, err := fr.tryNextRecord()
	require.NoError(t, err)
	assert.Equal(t, entryNone, ent.status)
}

func TestFileReader_PartialLengthPrefixIsCorrupted(t *testing.T) {
	fr := newFileReader(openFixture(t, []byte{0x00, 0x00, 0x01}), DefaultMaxRecordSize)
	ent, err := fr.tryNextRecord()
	require.NoError(t, err)
	assert.Equal(t, entryCorrupted, ent.status)
}

func TestFileReader_TruncatedPayloadIsCorrupted(t *testing.T) {
	frame := buildFrame(1, []byte("hello world"))
	// Keep the length prefix but cut the archive short.
	truncated := frame[:4+3]
	fr := newFileReader(openFixture(t, truncated), DefaultMaxRecordSize)
	ent, err := fr.tryNextRecord()
	require.NoError(t, err)
	assert.Equal(t, entryCorrupted, ent.status)
}

func TestFileReader_BitFlipIsCorrupted(t *testing.T) {
	frame := buildFrame(1, []byte("hello"))
	frame[4] ^= 0xFF // flip a byte inside the archive's checksum field
	fr := newFileReader(openFixture(t, frame), DefaultMaxRecordSize)
	ent, err := fr.tryNextRecord()
	require.NoError(t, err)
	assert.Equal(t, entryCorrupted, ent.status)
}

func TestFileReader_LengthAboveMaxIsCorruptedBeforeAllocating(t *testing.T) {
	var lenBuf [4]byte
	encoding.EncodeFixed32BE(lenBuf[:], 1<<30)
	fr := newFileReader(openFixture(t, lenBuf[:]), 1024)
	ent, err := fr.tryNextRecord()
	require.NoError(t, err)
	assert.Equal(t, entryCorrupted, ent.status)
}

func TestFileReader_ReadArchive_ExpiredTokenPanics(t *testing.T) {
	buf := buildFrame(1, []byte("a"))
	buf = append(buf, buildFrame(2, []byte("b"))...)
	fr := newFileReader(openFixture(t, buf), DefaultMaxRecordSize)

	first, err := fr.tryNextRecord()
	require.NoError(t, err)
	require.Equal(t, entryValid, first.status)

	_, err = fr.tryNextRecord()
	require.NoError(t, err)

	assert.Panics(t, func() {
		fr.readArchive(first.token)
	})
}

func TestFileReader_ReadArchive_ZeroValueTokenPanics(t *testing.T) {
	fr := newFileReader(openFixture(t, buildFrame(1, []byte("a"))), DefaultMaxRecordSize)
	assert.Panics(t, func() {
		fr.readArchive(readToken{})
	})
}
