// Package hash computes content digests for duplicate detection and
// download verification.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// ChunkSize is how much of a file is read per iteration. Bounded so
// arbitrarily large files never load into memory at once.
const ChunkSize = 1 << 20 // 1 MiB

// DigestSize is the BLAKE3 output length in bytes.
const DigestSize = 32

// Progress is called after each chunk with cumulative bytes consumed.
type Progress func(bytesProcessed int64)

// ReadError reports a failed chunk read. No digest is produced when a
// read fails partway through.
type ReadError struct {
	Offset int64
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read content at offset %d: %v", e.Offset, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Sum streams size bytes of r through BLAKE3 in ChunkSize pieces and
// returns the digest as a 64-char lowercase hex string. Chunks are fed
// at strictly increasing contiguous offsets; the final chunk is clipped
// to size. A zero size yields the empty-input digest.
func Sum(r io.ReaderAt, size int64, progress Progress) (string, error) {
	h := blake3.New()
	buf := make([]byte, ChunkSize)

	for offset := int64(0); offset < size; offset += ChunkSize {
		want := size - offset
		if want > ChunkSize {
			want = ChunkSize
		}

		n, err := r.ReadAt(buf[:want], offset)
		if int64(n) < want {
			if err == nil || err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return "", &ReadError{Offset: offset, Err: err}
		}

		h.Write(buf[:want])
		if progress != nil {
			progress(offset + want)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumFile computes the BLAKE3 digest of the file at path.
func SumFile(path string, progress Progress) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &ReadError{Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", &ReadError{Err: err}
	}

	return Sum(f, info.Size(), progress)
}

// SumReader computes the BLAKE3 digest of a plain stream.
func SumReader(r io.Reader) (string, error) {
	h := blake3.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", &ReadError{Err: err}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Dual computes BLAKE3 and SHA-256 in a single pass. The portal reports
// both checksums on download, so verification needs both without
// re-reading the content.
func Dual(r io.Reader, progress Progress) (blake3Hex, sha256Hex string, err error) {
	b3 := blake3.New()
	s256 := sha256.New()
	w := io.MultiWriter(b3, s256)

	src := r
	if progress != nil {
		src = &progressReader{reader: r, callback: progress}
	}
	if _, err := io.Copy(w, src); err != nil {
		return "", "", &ReadError{Err: err}
	}

	return hex.EncodeToString(b3.Sum(nil)), hex.EncodeToString(s256.Sum(nil)), nil
}

// progressReader reports cumulative bytes as they pass through.
type progressReader struct {
	reader         io.Reader
	callback       Progress
	bytesProcessed int64
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.bytesProcessed += int64(n)
		pr.callback(pr.bytesProcessed)
	}
	return n, err
}
