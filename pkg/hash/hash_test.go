package hash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// BLAKE3 of empty input.
const emptyDigest = "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"

func TestSum_Empty(t *testing.T) {
	got, err := Sum(bytes.NewReader(nil), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, emptyDigest, got)
}

func TestSum_MatchesStreamAcrossChunkBoundaries(t *testing.T) {
	sizes := []int{1, ChunkSize - 1, ChunkSize, ChunkSize + 1, 2*ChunkSize + 123}
	for _, size := range sizes {
		data := make([]byte, size)
		for i := range data {
			data[i] = byte(i * 31)
		}

		chunked, err := Sum(bytes.NewReader(data), int64(size), nil)
		require.NoError(t, err)

		streamed, err := SumReader(bytes.NewReader(data))
		require.NoError(t, err)

		assert.Equal(t, streamed, chunked, "size %d", size)
		assert.Len(t, chunked, 64)
	}
}

func TestSum_ProgressCoversEveryByteOnce(t *testing.T) {
	size := int64(2*ChunkSize + 777)
	data := make([]byte, size)

	var marks []int64
	_, err := Sum(bytes.NewReader(data), size, func(n int64) {
		marks = append(marks, n)
	})
	require.NoError(t, err)

	// ceil(N/C) reads, strictly increasing, ending exactly at N.
	require.Len(t, marks, 3)
	assert.Equal(t, int64(ChunkSize), marks[0])
	assert.Equal(t, int64(2*ChunkSize), marks[1])
	assert.Equal(t, size, marks[2])
}

type failingReaderAt struct {
	failAfter int64
}

func (f *failingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= f.failAfter {
		return 0, errors.New("file vanished")
	}
	for i := range p {
		p[i] = 'x'
	}
	return len(p), nil
}

func TestSum_ReadFailureAbortsWithoutDigest(t *testing.T) {
	_, err := Sum(&failingReaderAt{failAfter: ChunkSize}, 3*ChunkSize, nil)
	require.Error(t, err)

	var re *ReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, int64(ChunkSize), re.Offset)
}

func TestSum_TruncatedFileIsAReadError(t *testing.T) {
	// Declared length longer than the actual content.
	_, err := Sum(bytes.NewReader(make([]byte, 100)), 200, nil)
	var re *ReadError
	require.ErrorAs(t, err, &re)
}

func TestSumFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkg.zip")
	content := []byte("portal package content")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	fromFile, err := SumFile(path, nil)
	require.NoError(t, err)

	fromStream, err := SumReader(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, fromStream, fromFile)

	_, err = SumFile(filepath.Join(t.TempDir(), "missing"), nil)
	var re *ReadError
	require.ErrorAs(t, err, &re)
}

func TestDual(t *testing.T) {
	content := []byte("dual hash content")

	b3, s256, err := Dual(bytes.NewReader(content), nil)
	require.NoError(t, err)

	wantB3, err := SumReader(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, wantB3, b3)

	sum := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(sum[:]), s256)
}

func TestDual_Progress(t *testing.T) {
	content := make([]byte, 4096)
	var last int64
	_, _, err := Dual(bytes.NewReader(content), func(n int64) { last = n })
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), last)
}

func TestSumReader_Error(t *testing.T) {
	_, err := SumReader(io.LimitReader(&failingReader{}, 10))
	var re *ReadError
	require.ErrorAs(t, err, &re)
}

type failingReader struct{}

func (f *failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}
