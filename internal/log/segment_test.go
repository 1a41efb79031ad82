package log

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSegmentAppendRead(t *testing.T) {
	dir, err := os.MkdirTemp("", "segment-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	s, err := OpenSegment(dir, 0, 64)
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, int64(64), s.Capacity())
	require.Equal(t, int64(0), s.WriteOffset())

	ok, err := s.Append([]byte("abcd\n"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(5), s.WriteOffset())

	lines, next, err := s.Read(0, 10)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("abcd\n")}, lines)
	require.Equal(t, int64(5), next)
}

func TestSegmentAppendNoRoom(t *testing.T) {
	dir, err := os.MkdirTemp("", "segment-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	s, err := OpenSegment(dir, 0, 8)
	require.NoError(t, err)
	defer s.Close()

	ok, err := s.Append([]byte("0123456789\n"))
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, int64(0), s.WriteOffset())
}

func TestSegmentWithholdsPartialLine(t *testing.T) {
	dir, err := os.MkdirTemp("", "segment-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	s, err := OpenSegment(dir, 0, 64)
	require.NoError(t, err)
	defer s.Close()

	ok, err := s.Append([]byte("abcd\nnope"))
	require.NoError(t, err)
	require.True(t, ok)

	lines, next, err := s.Read(0, 10)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("abcd\n")}, lines)
	require.Equal(t, int64(5), next)

	ok, err = s.Append([]byte("!\n"))
	require.NoError(t, err)
	require.True(t, ok)

	lines, next, err = s.Read(next, 10)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("nope!\n")}, lines)
	require.Equal(t, int64(5+6), next)
}

func TestSegmentReadBadOffset(t *testing.T) {
	dir, err := os.MkdirTemp("", "segment-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	s, err := OpenSegment(dir, 0, 64)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Append([]byte("abcd\n"))
	require.NoError(t, err)

	_, _, err = s.Read(-1, 10)
	require.ErrorIs(t, err, ErrBadOffset)

	_, _, err = s.Read(6, 10)
	require.ErrorIs(t, err, ErrBadOffset)
}

func TestSegmentReopenRecoversWriteOffset(t *testing.T) {
	dir, err := os.MkdirTemp("", "segment-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	s, err := OpenSegment(dir, 0, 64)
	require.NoError(t, err)
	_, err = s.Append([]byte("abcd\n"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := OpenSegment(dir, 0, 64)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, int64(5), reopened.WriteOffset())
	require.Equal(t, int64(64), reopened.Capacity())

	lines, _, err := reopened.Read(0, 10)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("abcd\n")}, lines)
}

func TestSegmentMissingIndexIsCorrupt(t *testing.T) {
	dir, err := os.MkdirTemp("", "segment-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	s, err := OpenSegment(dir, 0, 64)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, os.Remove(s.indexPath))

	_, err = OpenSegment(dir, 0, 64)
	require.ErrorIs(t, err, ErrCorruptIndex)
}

func TestSegmentNamingRoundTrips(t *testing.T) {
	for _, base := range []int64{0, 1, 1024, 9223372036854775807} {
		name := segmentName(base)
		require.Len(t, name, baseWidth)
		got, err := parseBase(name + segSuffix)
		require.NoError(t, err)
		require.Equal(t, base, got)
	}
}
