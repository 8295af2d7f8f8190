package upload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fccur/portal/pkg/client"
	"github.com/fccur/portal/pkg/hash"
	"github.com/fccur/portal/pkg/protocol"
	"github.com/fccur/portal/pkg/retry"
)

type recordingServer struct {
	mu        sync.Mutex
	paths     []string
	duplicate *protocol.Package
	failCheck bool
}

func (rs *recordingServer) record(path string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.paths = append(rs.paths, path)
}

func (rs *recordingServer) requests() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]string(nil), rs.paths...)
}

func (rs *recordingServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.record(r.URL.Path)
		switch r.URL.Path {
		case "/api/check-duplicate":
			if rs.failCheck {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			hexDigest := r.URL.Query().Get("hash")
			assert.Len(t, hexDigest, 64)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(protocol.DuplicateCheckResponse{
				Duplicate: rs.duplicate != nil,
				Package:   rs.duplicate,
			})
		case "/api/upload":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "demo-tool", r.FormValue("name"))
			_, header, err := r.FormFile("package")
			require.NoError(t, err)
			assert.Equal(t, "demo.zip", header.Filename)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(protocol.Package{ID: 42, Name: "demo-tool"})
		default:
			t.Errorf("unexpected request: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func testGate(t *testing.T, rs *recordingServer, confirm ConfirmFunc) *Gate {
	t.Helper()
	ts := httptest.NewServer(rs.handler(t))
	t.Cleanup(ts.Close)

	c := client.New(client.Config{
		BaseURL:     ts.URL,
		RetryConfig: retry.Config{MaxAttempts: 1, InitialWait: time.Millisecond, MaxWait: time.Millisecond},
	})
	return &Gate{Client: c, Confirm: confirm}
}

func writeTestFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo.zip")
	require.NoError(t, os.WriteFile(path, []byte("demo package content"), 0o644))
	return path
}

func uploadReq() client.UploadRequest {
	return client.UploadRequest{
		Name:        "demo-tool",
		Version:     "1.0.0",
		Category:    "utilities",
		Platform:    "linux",
		ContentType: "tool",
	}
}

func TestGate_NoMatchUploads(t *testing.T) {
	rs := &recordingServer{}
	g := testGate(t, rs, func(existing *protocol.Package) (bool, error) {
		t.Fatal("confirm must not be called without a match")
		return false, nil
	})

	res, err := g.Run(context.Background(), writeTestFile(t), uploadReq())
	require.NoError(t, err)
	assert.Nil(t, res.Duplicate)
	require.NotNil(t, res.Package)
	assert.Equal(t, int64(42), res.Package.ID)

	// Duplicate check strictly precedes the upload.
	assert.Equal(t, []string{"/api/check-duplicate", "/api/upload"}, rs.requests())
}

func TestGate_DigestMatchesContent(t *testing.T) {
	rs := &recordingServer{}
	g := testGate(t, rs, nil)

	path := writeTestFile(t)
	want, err := hash.SumFile(path, nil)
	require.NoError(t, err)

	res, err := g.Run(context.Background(), path, uploadReq())
	require.NoError(t, err)
	assert.Equal(t, want, res.Digest)
}

func TestGate_MatchAndCancel(t *testing.T) {
	existing := &protocol.Package{ID: 7, Name: "demo-tool", Version: "0.9.0"}
	rs := &recordingServer{duplicate: existing}

	var saw *protocol.Package
	g := testGate(t, rs, func(p *protocol.Package) (bool, error) {
		saw = p
		return false, nil
	})

	_, err := g.Run(context.Background(), writeTestFile(t), uploadReq())
	require.ErrorIs(t, err, ErrCancelled)

	require.NotNil(t, saw)
	assert.Equal(t, int64(7), saw.ID)

	// Cancellation means zero calls beyond the duplicate check.
	assert.Equal(t, []string{"/api/check-duplicate"}, rs.requests())
}

func TestGate_MatchAndContinue(t *testing.T) {
	rs := &recordingServer{duplicate: &protocol.Package{ID: 7}}
	g := testGate(t, rs, func(p *protocol.Package) (bool, error) {
		return true, nil
	})

	res, err := g.Run(context.Background(), writeTestFile(t), uploadReq())
	require.NoError(t, err)
	require.NotNil(t, res.Duplicate)
	require.NotNil(t, res.Package)
	assert.Equal(t, []string{"/api/check-duplicate", "/api/upload"}, rs.requests())
}

func TestGate_LookupFailureBlocksUpload(t *testing.T) {
	rs := &recordingServer{failCheck: true}
	g := testGate(t, rs, nil)

	_, err := g.Run(context.Background(), writeTestFile(t), uploadReq())
	require.Error(t, err)

	for _, p := range rs.requests() {
		assert.NotEqual(t, "/api/upload", p, "no upload bytes may move after a failed lookup")
	}
}

func TestGate_MissingFile(t *testing.T) {
	rs := &recordingServer{}
	g := testGate(t, rs, nil)

	_, err := g.Run(context.Background(), filepath.Join(t.TempDir(), "missing.zip"), uploadReq())
	var re *hash.ReadError
	require.ErrorAs(t, err, &re)
	assert.Empty(t, rs.requests(), "a local read failure makes no network calls")
}
