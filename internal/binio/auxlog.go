package binio

import (
	"fmt"
	"os"
	"sync"
)

// AuxLogger appends lines to the three optional auxiliary log files the
// extractor writes: <prefix>_debug_info.txt, <prefix>_extract_info.txt and
// <prefix>_fail.txt. Each line is written under AuxLogger's own mutex, so
// lines never mix mid-line; descriptor writes do not take this mutex. The
// lock is held for one line at a time, so lines from different workers may
// interleave: a worker's lines are not guaranteed to be contiguous.
type AuxLogger struct {
	mu sync.Mutex

	debug   *os.File
	extract *os.File
	fail    *os.File
}

// OpenAuxLogger opens (creating or appending to) the requested logs.
// Passing enableDebug/enableExtract/enableFail false skips opening that
// file; writes to a disabled log are silently dropped.
func OpenAuxLogger(prefix string, enableDebug, enableExtract, enableFail bool) (*AuxLogger, error) {
	l := &AuxLogger{}
	var err error
	if enableDebug {
		if l.debug, err = openAppend(prefix + "_debug_info.txt"); err != nil {
			return nil, err
		}
	}
	if enableExtract {
		if l.extract, err = openAppend(prefix + "_extract_info.txt"); err != nil {
			l.Close()
			return nil, err
		}
	}
	if enableFail {
		if l.fail, err = openAppend(prefix + "_fail.txt"); err != nil {
			l.Close()
			return nil, err
		}
	}
	return l, nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("binio: open aux log %s: %w", path, err)
	}
	return f, nil
}

// Debug appends "<templateID> <label> <elapsedMillis>" to the debug log.
func (l *AuxLogger) Debug(templateID string, label int32, elapsedMillis int64) {
	if l.debug == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.debug, "%s %d %d\n", templateID, label, elapsedMillis)
}

// ExtractInfo appends "<templateID> <label> <eyeX> <eyeY> <quality>" to the
// extract-info log.
func (l *AuxLogger) ExtractInfo(templateID string, label int32, eyeX, eyeY float64, quality float64) {
	if l.extract == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.extract, "%s %d %g %g %g\n", templateID, label, eyeX, eyeY, quality)
}

// Fail appends every refused template's image paths, one line per
// template: "<templateID> <path> [<path> ...]".
func (l *AuxLogger) Fail(templateID string, paths []string) {
	if l.fail == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.fail, "%s", templateID)
	for _, p := range paths {
		fmt.Fprintf(l.fail, " %s", p)
	}
	fmt.Fprint(l.fail, "\n")
}

// Close closes every opened log file.
func (l *AuxLogger) Close() error {
	var firstErr error
	for _, f := range []*os.File{l.debug, l.extract, l.fail} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
