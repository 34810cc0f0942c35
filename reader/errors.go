package reader

import "errors"

// ErrNotSeeked is returned by Next if SeekToNextRecord has not yet
// completed successfully. Next requires a seeked reader so that restart
// replay (S4) cannot be skipped by accident.
var ErrNotSeeked = errors.New("reader: SeekToNextRecord must be called before Next")
