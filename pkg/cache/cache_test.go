package cache

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fccur/portal/pkg/hash"
)

func digestOf(t *testing.T, content string) string {
	t.Helper()
	d, err := hash.SumReader(strings.NewReader(content))
	require.NoError(t, err)
	return d
}

func TestPutGetRoundTrip(t *testing.T) {
	c, err := Open(t.TempDir(), 1<<20)
	require.NoError(t, err)

	content := "package blob"
	digest := digestOf(t, content)

	path, err := c.Put(digest, strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	got, ok := c.Get(digest)
	require.True(t, ok)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestPut_RejectsMismatchedContent(t *testing.T) {
	c, err := Open(t.TempDir(), 1<<20)
	require.NoError(t, err)

	digest := digestOf(t, "expected content")
	_, err = c.Put(digest, strings.NewReader("different content"), 17)
	require.Error(t, err)

	_, ok := c.Get(digest)
	assert.False(t, ok, "mismatched content must not be stored")

	files, err := os.ReadDir(c.Dir())
	require.NoError(t, err)
	assert.Empty(t, files, "no temp file may remain")
}

func TestPut_RejectsInvalidDigest(t *testing.T) {
	c, err := Open(t.TempDir(), 1<<20)
	require.NoError(t, err)

	_, err = c.Put("not-a-digest", strings.NewReader("x"), 1)
	require.Error(t, err)
}

func TestGetVerified_EvictsCorruptEntry(t *testing.T) {
	c, err := Open(t.TempDir(), 1<<20)
	require.NoError(t, err)

	content := "pristine"
	digest := digestOf(t, content)
	path, err := c.Put(digest, strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	// Corrupt the blob behind the cache's back.
	require.NoError(t, os.WriteFile(path, []byte("tampered"), 0o644))

	_, ok := c.GetVerified(digest)
	assert.False(t, ok)
	_, ok = c.Get(digest)
	assert.False(t, ok, "corrupt entry must be dropped")
}

func TestOpen_RebuildsIndexFromDisk(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(dir, 1<<20)
	require.NoError(t, err)
	content := "survives reopen"
	digest := digestOf(t, content)
	_, err = c.Put(digest, strings.NewReader(content), int64(len(content)))
	require.NoError(t, err)

	reopened, err := Open(dir, 1<<20)
	require.NoError(t, err)

	path, ok := reopened.GetVerified(digest)
	require.True(t, ok)
	data, _ := os.ReadFile(path)
	assert.Equal(t, content, string(data))

	size, _, count := reopened.Stats()
	assert.Equal(t, int64(len(content)), size)
	assert.Equal(t, 1, count)
}

func TestEviction_RespectsPins(t *testing.T) {
	c, err := Open(t.TempDir(), 64)
	require.NoError(t, err)

	first := strings.Repeat("a", 30)
	second := strings.Repeat("b", 30)
	third := strings.Repeat("c", 30)

	d1 := digestOf(t, first)
	d2 := digestOf(t, second)
	d3 := digestOf(t, third)

	_, err = c.Put(d1, strings.NewReader(first), 30)
	require.NoError(t, err)
	require.NoError(t, c.Pin(d1))

	_, err = c.Put(d2, strings.NewReader(second), 30)
	require.NoError(t, err)

	// Third blob overflows the bound; the unpinned second entry goes,
	// the pinned first stays.
	_, err = c.Put(d3, strings.NewReader(third), 30)
	require.NoError(t, err)

	_, ok := c.Get(d1)
	assert.True(t, ok)
	_, ok = c.Get(d2)
	assert.False(t, ok)
	_, ok = c.Get(d3)
	assert.True(t, ok)

	assert.Error(t, c.Evict(d1), "pinned entries cannot be evicted")
	require.NoError(t, c.Unpin(d1))
	assert.NoError(t, c.Evict(d1))
}

func TestClear_KeepsPinned(t *testing.T) {
	c, err := Open(t.TempDir(), 1<<20)
	require.NoError(t, err)

	keep := "pinned content"
	drop := "droppable content"
	dKeep := digestOf(t, keep)
	dDrop := digestOf(t, drop)

	_, err = c.Put(dKeep, strings.NewReader(keep), int64(len(keep)))
	require.NoError(t, err)
	require.NoError(t, c.Pin(dKeep))
	_, err = c.Put(dDrop, strings.NewReader(drop), int64(len(drop)))
	require.NoError(t, err)

	assert.Equal(t, 1, c.Clear())

	_, ok := c.Get(dKeep)
	assert.True(t, ok)
	assert.Len(t, c.List(), 1)
}

func TestPut_LargeBinaryContent(t *testing.T) {
	c, err := Open(t.TempDir(), 1<<22)
	require.NoError(t, err)

	blob := bytes.Repeat([]byte{0x00, 0xff, 0x10}, 100_000)
	digest, err := hash.SumReader(bytes.NewReader(blob))
	require.NoError(t, err)

	_, err = c.Put(digest, bytes.NewReader(blob), int64(len(blob)))
	require.NoError(t, err)

	path, ok := c.GetVerified(digest)
	require.True(t, ok)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(blob, data))
}
