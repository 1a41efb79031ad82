package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Log owns a directory of segments and the global byte-offset
// namespace they cover. Exactly one segment is active (the write
// tail); the rest are sealed and opened transiently for reads.
type Log struct {
	mu sync.Mutex

	dir         string
	segmentSize int64
	maxSegments int

	active *Segment
}

// Open scans dir for existing segments and opens the one with the
// greatest base as active, creating a fresh base-0 segment if the
// directory is empty.
func Open(dir string, segmentSize int64, maxSegments int) (*Log, error) {
	if segmentSize <= 0 {
		return nil, fmt.Errorf("log: segment size must be positive")
	}
	if maxSegments < 1 {
		return nil, fmt.Errorf("log: max segments must be at least 1")
	}

	l := &Log{
		dir:         dir,
		segmentSize: segmentSize,
		maxSegments: maxSegments,
	}

	bases, err := l.listBases()
	if err != nil {
		return nil, err
	}

	base := int64(0)
	if len(bases) > 0 {
		base = bases[len(bases)-1]
	}

	active, err := OpenSegment(dir, base, segmentSize)
	if err != nil {
		return nil, err
	}
	l.active = active

	return l, nil
}

// Close releases the active segment's file handle.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active.Close()
}

// Append forwards block to the active segment, rolling over to a new
// segment (and evicting the oldest one if retention requires it) when
// the active segment has no room. It reports false, with no error, if
// block by itself exceeds segmentSize.
func (l *Log) Append(block []byte) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ok, err := l.active.Append(block)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}

	if err := l.rollover(); err != nil {
		return false, err
	}

	ok, err = l.active.Append(block)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// rollover closes the active segment, enforces retention, and opens a
// fresh active segment immediately after it in the global namespace.
func (l *Log) rollover() error {
	// contiguity invariant (§3): the next base follows from capacity,
	// not write_offset, even when the sealed segment is short.
	nextBase := l.active.Base() + l.active.Capacity()

	if err := l.active.Close(); err != nil {
		return err
	}

	bases, err := l.listBases()
	if err != nil {
		return err
	}
	if len(bases) >= l.maxSegments {
		if err := l.removeSegment(bases[0]); err != nil {
			return err
		}
	}

	next, err := OpenSegment(l.dir, nextBase, l.segmentSize)
	if err != nil {
		return err
	}
	l.active = next
	return nil
}

// Read returns up to maxLines complete lines starting at global
// offset, plus the cursor that follows the last line returned.
// next == Sentinel denotes an offset beyond the valid range.
func (l *Log) Read(offset int64, maxLines int) ([][]byte, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result [][]byte
	cur := offset

	// §4.2's five steps re-evaluate the active segment's span on every
	// pass, so a read spanning several sealed segments plus the active
	// tail is a single loop, not a sealed-only sub-loop that stops at
	// the active boundary.
	for len(result) < maxLines {
		frontier := l.frontier()
		base := l.active.Base()

		switch {
		case cur > frontier:
			if len(result) == 0 {
				return nil, Sentinel, nil
			}
			return result, cur, nil
		case cur == frontier:
			return result, cur, nil
		case cur >= base:
			lines, newLocal, err := l.active.Read(cur-base, maxLines-len(result))
			if err != nil {
				return nil, Sentinel, err
			}
			result = append(result, lines...)
			// the active segment is always the last one; nothing
			// beyond its write offset exists yet.
			return result, base + newLocal, nil
		default:
			sbase, found, err := l.findSealedBase(cur)
			if err != nil {
				return nil, Sentinel, err
			}
			if !found {
				if len(result) == 0 {
					return nil, Sentinel, nil
				}
				return result, cur, nil
			}

			seg, err := OpenSegment(l.dir, sbase, 0)
			if err != nil {
				return nil, Sentinel, err
			}

			lines, newLocal, err := seg.Read(cur-sbase, maxLines-len(result))
			writeOffset := seg.WriteOffset()
			capacity := seg.Capacity()
			closeErr := seg.Close()
			if err != nil {
				return nil, Sentinel, err
			}
			if closeErr != nil {
				return nil, Sentinel, closeErr
			}

			result = append(result, lines...)
			if newLocal < writeOffset {
				// budget satisfied before draining the segment
				return result, sbase + newLocal, nil
			}
			// segment drained; the next base is base+capacity, not
			// base+writeOffset (contiguity invariant, spec §3/§9)
			cur = sbase + capacity
		}
	}

	return result, cur, nil
}

// Offset returns the current write frontier: active.base +
// active.write_offset.
func (l *Log) Offset() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frontier()
}

// frontier assumes the caller already holds l.mu.
func (l *Log) frontier() int64 {
	return l.active.Base() + l.active.WriteOffset()
}

// findSealedBase returns the greatest on-disk segment base <= offset.
func (l *Log) findSealedBase(offset int64) (int64, bool, error) {
	bases, err := l.listBases()
	if err != nil {
		return 0, false, err
	}
	for i := len(bases) - 1; i >= 0; i-- {
		if bases[i] <= offset {
			return bases[i], true, nil
		}
	}
	return 0, false, nil
}

// listBases returns every on-disk segment base, sorted ascending.
func (l *Log) listBases() ([]int64, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}

	var bases []int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if len(name) < len(segSuffix) || name[len(name)-len(segSuffix):] != segSuffix {
			continue
		}
		base, err := parseBase(name)
		if err != nil {
			continue
		}
		bases = append(bases, base)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })
	return bases, nil
}

// removeSegment deletes the on-disk .seg/.idx pair for base without
// going through Segment.Open (it was never kept open by the Log).
func (l *Log) removeSegment(base int64) error {
	name := segmentName(base)
	if err := os.Remove(filepath.Join(l.dir, name+segSuffix)); err != nil {
		return err
	}
	return os.Remove(filepath.Join(l.dir, name+idxSuffix))
}
