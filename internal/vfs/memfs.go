package vfs

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// MemFS is an in-memory FS implementation for fast, deterministic unit
// tests that don't need to touch the real disk.
type MemFS struct {
	mu    sync.RWMutex
	files map[string]*memFile
	locks map[string]bool
}

type memFile struct {
	data  []byte
	mtime time.Time
}

// NewMemFS creates an empty in-memory filesystem.
func NewMemFS() *MemFS {
	return &MemFS{
		files: make(map[string]*memFile),
		locks: make(map[string]bool),
	}
}

func (m *MemFS) Create(name string) (WritableFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = &memFile{mtime: time.Now()}
	return &memWritableFile{fs: m, name: name}, nil
}

func (m *MemFS) Open(name string) (SequentialFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.files[name]; !ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}
	// Reads go through to the live file (see memSequentialFile.Read), not
	// a snapshot, so a reader that opens a file before the writer has
	// finished appending to it observes later appends the same way a
	// real os.File positioned at the same offset would.
	return &memSequentialFile{fs: m, name: name}, nil
}

func (m *MemFS) Rename(oldname, newname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[oldname]
	if !ok {
		return &os.PathError{Op: "rename", Path: oldname, Err: os.ErrNotExist}
	}
	m.files[newname] = f
	delete(m.files, oldname)
	return nil
}

func (m *MemFS) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		return &os.PathError{Op: "remove", Path: name, Err: os.ErrNotExist}
	}
	delete(m.files, name)
	return nil
}

func (m *MemFS) MkdirAll(path string, perm os.FileMode) error {
	// Directories are implicit in MemFS: a path prefix exists iff some file
	// uses it. Nothing to record.
	return nil
}

func (m *MemFS) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[name]
	return ok
}

func (m *MemFS) Lock(name string) (io.Closer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[name] {
		return nil, fmt.Errorf("vfs: lock %s: already held", name)
	}
	m.locks[name] = true
	return &memLocker{fs: m, name: name}, nil
}

func (m *MemFS) SyncDir(path string) error {
	return nil
}

type memLocker struct {
	fs   *MemFS
	name string
}

func (l *memLocker) Close() error {
	l.fs.mu.Lock()
	defer l.fs.mu.Unlock()
	delete(l.fs.locks, l.name)
	return nil
}

type memWritableFile struct {
	fs   *MemFS
	name string
}

func (w *memWritableFile) Write(p []byte) (int, error) {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	f, ok := w.fs.files[w.name]
	if !ok {
		return 0, &os.PathError{Op: "write", Path: w.name, Err: os.ErrNotExist}
	}
	f.data = append(f.data, p...)
	f.mtime = time.Now()
	return len(p), nil
}

func (w *memWritableFile) Close() error { return nil }

func (w *memWritableFile) Sync() error { return nil }

func (w *memWritableFile) Append(data []byte) error {
	_, err := w.Write(data)
	return err
}

func (w *memWritableFile) Truncate(size int64) error {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	f, ok := w.fs.files[w.name]
	if !ok {
		return &os.PathError{Op: "truncate", Path: w.name, Err: os.ErrNotExist}
	}
	if int64(len(f.data)) > size {
		f.data = f.data[:size]
	} else {
		f.data = append(f.data, make([]byte, size-int64(len(f.data)))...)
	}
	return nil
}

func (w *memWritableFile) Size() (int64, error) {
	w.fs.mu.RLock()
	defer w.fs.mu.RUnlock()
	f, ok := w.fs.files[w.name]
	if !ok {
		return 0, &os.PathError{Op: "stat", Path: w.name, Err: os.ErrNotExist}
	}
	return int64(len(f.data)), nil
}

// memSequentialFile is a cursor into a MemFS file's live data. Unlike a
// snapshot, reads past the cursor's current position pick up bytes
// appended to the file after Open was called.
type memSequentialFile struct {
	fs   *MemFS
	name string
	pos  int64
}

func (s *memSequentialFile) Read(p []byte) (int, error) {
	s.fs.mu.RLock()
	f, ok := s.fs.files[s.name]
	if !ok {
		s.fs.mu.RUnlock()
		return 0, &os.PathError{Op: "read", Path: s.name, Err: os.ErrNotExist}
	}
	if s.pos >= int64(len(f.data)) {
		s.fs.mu.RUnlock()
		return 0, io.EOF
	}
	n := copy(p, f.data[s.pos:])
	s.fs.mu.RUnlock()
	s.pos += int64(n)
	return n, nil
}

func (s *memSequentialFile) Close() error { return nil }

func (s *memSequentialFile) Skip(n int64) error {
	s.pos += n
	return nil
}
