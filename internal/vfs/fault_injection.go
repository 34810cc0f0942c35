// Package vfs provides filesystem abstractions including fault injection for testing.
//
// FaultInjectionFS wraps a real filesystem and allows injecting errors
// to exercise the reader's I/O error propagation paths (§7) without
// relying on real disk faults.
package vfs

import (
	"errors"
	"io"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

var (
	// ErrInjectedReadError is returned by Open when a read error is injected.
	ErrInjectedReadError = errors.New("vfs: injected read error")

	// ErrInjectedWriteError is returned when a write error is injected.
	ErrInjectedWriteError = errors.New("vfs: injected write error")

	// ErrInjectedSyncError is returned when a sync error is injected.
	ErrInjectedSyncError = errors.New("vfs: injected sync error")

	// ErrInjectedRemoveError is returned when a remove error is injected.
	ErrInjectedRemoveError = errors.New("vfs: injected remove error")
)

// FaultInjectionFS wraps an FS and allows injecting errors.
// It tracks unsynced data per file so a test can simulate a crash by
// dropping writes that were never fsync'd.
type FaultInjectionFS struct {
	base FS

	mu sync.RWMutex

	fileState map[string]*fileState

	injectReadError   bool
	injectWriteError  bool
	injectSyncError   bool
	injectRemoveError bool
	readErrorPath     string
	writeErrorPath    string
	removeErrorPath   string

	// filesystemActive false rejects all writes, simulating a crashed disk.
	filesystemActive bool
}

// fileState tracks the sync state of a file.
type fileState struct {
	pos       int64 // Current file position
	syncedPos int64 // Position up to which data is synced
}

// NewFaultInjectionFS creates a new fault-injecting filesystem wrapper.
func NewFaultInjectionFS(base FS) *FaultInjectionFS {
	return &FaultInjectionFS{
		base:             base,
		fileState:        make(map[string]*fileState),
		filesystemActive: true,
	}
}

// SetFilesystemActive enables or disables the filesystem.
// When disabled, all writes fail. Used to simulate crash.
func (fs *FaultInjectionFS) SetFilesystemActive(active bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.filesystemActive = active
}

// InjectReadError makes Open of the given path fail with
// ErrInjectedReadError. An empty path injects the error for every Open call.
// Reads from a file that is already open are not affected.
func (fs *FaultInjectionFS) InjectReadError(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.injectReadError = true
	fs.readErrorPath = path
}

// InjectWriteError sets up write error injection for the given path.
func (fs *FaultInjectionFS) InjectWriteError(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.injectWriteError = true
	fs.writeErrorPath = path
}

// InjectSyncError sets up sync error injection.
func (fs *FaultInjectionFS) InjectSyncError() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.injectSyncError = true
}

// InjectRemoveError sets up remove error injection for the given path.
// An empty path injects the error for every Remove call.
func (fs *FaultInjectionFS) InjectRemoveError(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.injectRemoveError = true
	fs.removeErrorPath = path
}

// ClearErrors clears all error injection.
func (fs *FaultInjectionFS) ClearErrors() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.injectReadError = false
	fs.injectWriteError = false
	fs.injectSyncError = false
	fs.injectRemoveError = false
	fs.readErrorPath = ""
	fs.writeErrorPath = ""
	fs.removeErrorPath = ""
}

// DropUnsyncedData simulates a crash by truncating every tracked file back
// to its last synced position.
func (fs *FaultInjectionFS) DropUnsyncedData() error {
	fs.mu.Lock()
	states := make(map[string]*fileState)
	maps.Copy(states, fs.fileState)
	fs.mu.Unlock()

	for path, state := range states {
		if state.syncedPos < state.pos {
			f, err := os.OpenFile(path, os.O_RDWR, 0644)
			if err != nil {
				continue // File may not exist
			}
			_ = f.Truncate(state.syncedPos)
			_ = f.Close()

			fs.mu.Lock()
			if s, ok := fs.fileState[path]; ok {
				s.pos = state.syncedPos
			}
			fs.mu.Unlock()
		}
	}
	return nil
}

// GetFileState returns the tracked state for a file.
func (fs *FaultInjectionFS) GetFileState(path string) (syncedPos, currentPos int64, ok bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	state, exists := fs.fileState[path]
	if !exists {
		return 0, 0, false
	}
	return state.syncedPos, state.pos, true
}

// Create creates a new writable file with fault injection.
func (fs *FaultInjectionFS) Create(name string) (WritableFile, error) {
	fs.mu.RLock()
	if !fs.filesystemActive {
		fs.mu.RUnlock()
		return nil, ErrInjectedWriteError
	}
	if fs.injectWriteError && (fs.writeErrorPath == "" || fs.writeErrorPath == name) {
		fs.mu.RUnlock()
		return nil, ErrInjectedWriteError
	}
	fs.mu.RUnlock()

	baseFile, err := fs.base.Create(name)
	if err != nil {
		return nil, err
	}

	absPath, _ := filepath.Abs(name)

	fs.mu.Lock()
	fs.fileState[absPath] = &fileState{}
	fs.mu.Unlock()

	return &faultWritableFile{
		base: baseFile,
		fs:   fs,
		path: absPath,
	}, nil
}

// Open opens an existing file for sequential reading.
func (fs *FaultInjectionFS) Open(name string) (SequentialFile, error) {
	fs.mu.RLock()
	if fs.injectReadError && (fs.readErrorPath == "" || fs.readErrorPath == name) {
		fs.mu.RUnlock()
		return nil, ErrInjectedReadError
	}
	fs.mu.RUnlock()

	return fs.base.Open(name)
}

// Rename atomically renames a file.
func (fs *FaultInjectionFS) Rename(oldname, newname string) error {
	fs.mu.RLock()
	if !fs.filesystemActive {
		fs.mu.RUnlock()
		return ErrInjectedWriteError
	}
	fs.mu.RUnlock()

	err := fs.base.Rename(oldname, newname)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	absOld, _ := filepath.Abs(oldname)
	absNew, _ := filepath.Abs(newname)
	if state, ok := fs.fileState[absOld]; ok {
		fs.fileState[absNew] = state
		delete(fs.fileState, absOld)
	}
	fs.mu.Unlock()

	return nil
}

// Remove deletes a file.
func (fs *FaultInjectionFS) Remove(name string) error {
	fs.mu.RLock()
	if fs.injectRemoveError && (fs.removeErrorPath == "" || fs.removeErrorPath == name) {
		fs.mu.RUnlock()
		return ErrInjectedRemoveError
	}
	fs.mu.RUnlock()

	err := fs.base.Remove(name)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	absPath, _ := filepath.Abs(name)
	delete(fs.fileState, absPath)
	fs.mu.Unlock()

	return nil
}

// MkdirAll creates a directory and all parent directories.
func (fs *FaultInjectionFS) MkdirAll(path string, perm os.FileMode) error {
	fs.mu.RLock()
	if !fs.filesystemActive {
		fs.mu.RUnlock()
		return ErrInjectedWriteError
	}
	fs.mu.RUnlock()

	return fs.base.MkdirAll(path, perm)
}

// Exists returns true if the file exists.
func (fs *FaultInjectionFS) Exists(name string) bool {
	return fs.base.Exists(name)
}

// Lock acquires an exclusive lock on a file.
func (fs *FaultInjectionFS) Lock(name string) (io.Closer, error) {
	return fs.base.Lock(name)
}

// SyncDir syncs a directory. Fault injection has no directory-entry
// durability model in this package (see DESIGN.md); it simply delegates.
func (fs *FaultInjectionFS) SyncDir(path string) error {
	return fs.base.SyncDir(path)
}

// faultWritableFile wraps WritableFile with fault injection.
type faultWritableFile struct {
	base WritableFile
	fs   *FaultInjectionFS
	path string
}

func (f *faultWritableFile) Write(p []byte) (int, error) {
	f.fs.mu.RLock()
	if !f.fs.filesystemActive {
		f.fs.mu.RUnlock()
		return 0, ErrInjectedWriteError
	}
	if f.fs.injectWriteError && (f.fs.writeErrorPath == "" || f.fs.writeErrorPath == f.path) {
		f.fs.mu.RUnlock()
		return 0, ErrInjectedWriteError
	}
	f.fs.mu.RUnlock()

	n, err := f.base.Write(p)
	if err != nil {
		return n, err
	}

	f.fs.mu.Lock()
	if state, ok := f.fs.fileState[f.path]; ok {
		state.pos += int64(n)
	}
	f.fs.mu.Unlock()

	return n, nil
}

func (f *faultWritableFile) Close() error {
	return f.base.Close()
}

func (f *faultWritableFile) Sync() error {
	f.fs.mu.RLock()
	if f.fs.injectSyncError {
		f.fs.mu.RUnlock()
		return ErrInjectedSyncError
	}
	f.fs.mu.RUnlock()

	if err := f.base.Sync(); err != nil {
		return err
	}

	f.fs.mu.Lock()
	if state, ok := f.fs.fileState[f.path]; ok {
		state.syncedPos = state.pos
	}
	f.fs.mu.Unlock()

	return nil
}

func (f *faultWritableFile) Append(data []byte) error {
	_, err := f.Write(data)
	return err
}

func (f *faultWritableFile) Truncate(size int64) error {
	f.fs.mu.RLock()
	if !f.fs.filesystemActive {
		f.fs.mu.RUnlock()
		return ErrInjectedWriteError
	}
	f.fs.mu.RUnlock()

	if err := f.base.Truncate(size); err != nil {
		return err
	}

	f.fs.mu.Lock()
	if state, ok := f.fs.fileState[f.path]; ok {
		if size < state.syncedPos {
			state.syncedPos = size
		}
		state.pos = size
	}
	f.fs.mu.Unlock()

	return nil
}

func (f *faultWritableFile) Size() (int64, error) {
	return f.base.Size()
}
