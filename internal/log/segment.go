package log

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tysonmote/gommap"
)

// baseWidth is wide enough to hold the decimal form of any base this
// platform can represent, so lexicographic and numeric filename order
// always agree.
const baseWidth = len("9223372036854775807") // width of math.MaxInt64

const (
	segSuffix = ".seg"
	idxSuffix = ".idx"
)

// segmentName renders base as the fixed-width zero-padded decimal
// that data and index filenames are derived from.
func segmentName(base int64) string {
	return fmt.Sprintf("%0*d", baseWidth, base)
}

// parseBase decodes a segment filename back to its base offset.
func parseBase(name string) (int64, error) {
	name = strings.TrimSuffix(strings.TrimSuffix(name, segSuffix), idxSuffix)
	return strconv.ParseInt(name, 10, 64)
}

// Segment is one (.seg, .idx) file pair covering the global byte
// range [base, base+capacity).
type Segment struct {
	base        int64
	capacity    int64
	writeOffset int64

	dataPath  string
	indexPath string

	file *os.File
	mmap gommap.MMap
}

// OpenSegment opens the segment rooted at dir with the given base,
// creating its files if they don't already exist. capacity is only
// used for a brand new segment; an existing segment's capacity is
// read back from its data file size (§4.1).
func OpenSegment(dir string, base int64, capacity int64) (*Segment, error) {
	name := segmentName(base)
	s := &Segment{
		base:      base,
		dataPath:  filepath.Join(dir, name+segSuffix),
		indexPath: filepath.Join(dir, name+idxSuffix),
	}

	_, dataErr := os.Stat(s.dataPath)
	dataExists := dataErr == nil
	_, idxErr := os.Stat(s.indexPath)
	idxExists := idxErr == nil

	switch {
	case idxExists:
		off, err := readIndex(s.indexPath)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w: %v", base, ErrCorruptIndex, err)
		}
		s.writeOffset = off
	case dataExists:
		// A .seg with no .idx is unrecoverable without risking silent
		// data loss: we don't know how much of it is valid. Fail
		// fatally per spec.md §9(a)'s strict option.
		return nil, fmt.Errorf("segment %d: %w: .seg present without .idx", base, ErrCorruptIndex)
	default:
		s.writeOffset = 0
		if err := writeIndex(s.indexPath, 0); err != nil {
			return nil, err
		}
	}

	if !dataExists {
		if err := preallocate(s.dataPath, capacity); err != nil {
			return nil, err
		}
	}

	f, err := os.OpenFile(s.dataPath, os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	s.file = f

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	s.capacity = fi.Size()

	m, err := gommap.Map(f.Fd(), gommap.PROT_READ, gommap.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.mmap = m

	return s, nil
}

// preallocate creates name as a size-byte file filled with NUL.
func preallocate(name string, size int64) error {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Truncate(size)
}

func readIndex(path string) (int64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	off, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, err
	}
	if off < 0 {
		return 0, fmt.Errorf("negative write offset %d", off)
	}
	return off, nil
}

func writeIndex(path string, writeOffset int64) error {
	return os.WriteFile(path, []byte(strconv.FormatInt(writeOffset, 10)), 0644)
}

// Base returns the global offset at which this segment's data begins.
func (s *Segment) Base() int64 { return s.base }

// Capacity returns the preallocated size of the segment's data file.
func (s *Segment) Capacity() int64 { return s.capacity }

// WriteOffset returns the number of valid bytes written into the
// segment so far.
func (s *Segment) WriteOffset() int64 { return s.writeOffset }

// Append writes block at the current write offset. It reports false,
// with no error and no state change, if block does not fit in the
// segment's remaining capacity.
func (s *Segment) Append(block []byte) (bool, error) {
	if s.writeOffset+int64(len(block)) > s.capacity {
		return false, nil
	}

	if _, err := s.file.WriteAt(block, s.writeOffset); err != nil {
		return false, err
	}
	s.writeOffset += int64(len(block))
	if err := writeIndex(s.indexPath, s.writeOffset); err != nil {
		return false, err
	}
	return true, nil
}

// Read returns up to maxLines complete newline-terminated lines
// starting at local offset fromLocal, plus the local offset that
// follows the last line returned. A partial trailing line (no
// newline before the write offset) is never returned.
func (s *Segment) Read(fromLocal int64, maxLines int) ([][]byte, int64, error) {
	if fromLocal < 0 || fromLocal > s.writeOffset {
		return nil, 0, ErrBadOffset
	}

	var lines [][]byte
	pos := fromLocal
	for len(lines) < maxLines && pos < s.writeOffset {
		rest := s.mmap[pos:s.writeOffset]
		nl := bytes.IndexByte(rest, '\n')
		if nl < 0 {
			break // partial trailing line, withheld until completed
		}
		line := make([]byte, nl+1)
		copy(line, rest[:nl+1])
		lines = append(lines, line)
		pos += int64(len(line))
	}

	return lines, pos, nil
}

// Close unmaps the data file and releases the segment's file handle.
// Appends are written with unbuffered WriteAt, so nothing is pending,
// and the index file is already current on disk.
func (s *Segment) Close() error {
	if err := s.mmap.UnsafeUnmap(); err != nil {
		return err
	}
	return s.file.Close()
}

// Remove closes the segment and deletes its data and index files.
func (s *Segment) Remove() error {
	if err := s.Close(); err != nil {
		return err
	}
	if err := os.Remove(s.dataPath); err != nil {
		return err
	}
	return os.Remove(s.indexPath)
}
