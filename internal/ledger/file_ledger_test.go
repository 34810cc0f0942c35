package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diskbufio/diskbuf/internal/vfs"
)

func TestFileLedger_OpenFreshDefaults(t *testing.T) {
	fs := vfs.NewMemFS()
	l, err := Open(fs, "/buffer")
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, uint64(0), l.CurrentReaderFileID())
	assert.Equal(t, uint64(0), l.CurrentWriterFileID())
	assert.Equal(t, uint64(0), l.LastReaderRecordID())
}

func TestFileLedger_PersistsAcrossReopen(t *testing.T) {
	fs := vfs.NewMemFS()
	l, err := Open(fs, "/buffer")
	require.NoError(t, err)

	require.NoError(t, l.IncrementReaderFileID())
	require.NoError(t, l.IncrementWriterFileID())
	require.NoError(t, l.SetLastReaderRecordID(42))
	require.NoError(t, l.Close())

	reopened, err := Open(fs, "/buffer")
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, uint64(1), reopened.CurrentReaderFileID())
	assert.Equal(t, uint64(1), reopened.CurrentWriterFileID())
	assert.Equal(t, uint64(42), reopened.LastReaderRecordID())
}

func TestFileLedger_SecondOpenFailsWhileLocked(t *testing.T) {
	fs := vfs.NewMemFS()
	l, err := Open(fs, "/buffer")
	require.NoError(t, err)
	defer l.Close()

	_, err = Open(fs, "/buffer")
	assert.Error(t, err)
}

func TestFileLedger_DataFilePaths(t *testing.T) {
	fs := vfs.NewMemFS()
	l, err := Open(fs, "/buffer")
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, "/buffer/buffer-00000000.dat", l.ReaderDataFilePath())
	assert.Equal(t, "/buffer/buffer-00000000.dat", l.WriterDataFilePath())

	require.NoError(t, l.IncrementReaderFileID())
	assert.Equal(t, "/buffer/buffer-00000001.dat", l.ReaderDataFilePath())
	assert.Equal(t, "/buffer/buffer-00000000.dat", l.WriterDataFilePath())
}

func TestFileLedger_WaitForWriterWakesOnNotify(t *testing.T) {
	fs := vfs.NewMemFS()
	l, err := Open(fs, "/buffer")
	require.NoError(t, err)
	defer l.Close()

	done := make(chan error, 1)
	go func() {
		done <- l.WaitForWriter(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	l.NotifyWriterWaiters()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitForWriter did not wake up")
	}
}

func TestFileLedger_WaitForReaderWakesOnNotify(t *testing.T) {
	fs := vfs.NewMemFS()
	l, err := Open(fs, "/buffer")
	require.NoError(t, err)
	defer l.Close()

	done := make(chan error, 1)
	go func() {
		done <- l.WaitForReader(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	l.NotifyReaderWaiters()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitForReader did not wake up")
	}
}
