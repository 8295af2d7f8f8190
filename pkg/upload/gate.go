// Package upload implements the pre-upload gate: content is hashed and
// checked against the catalog before a single upload byte moves.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fccur/portal/internal/logging"
	"github.com/fccur/portal/pkg/client"
	"github.com/fccur/portal/pkg/hash"
	"github.com/fccur/portal/pkg/protocol"
)

// ErrCancelled is returned when the user declines to upload a
// duplicate. Nothing has been transmitted beyond the duplicate lookup.
var ErrCancelled = errors.New("upload cancelled")

// ConfirmFunc decides whether to proceed when identical content already
// exists in the catalog. It receives the existing package's metadata.
type ConfirmFunc func(existing *protocol.Package) (bool, error)

// Gate runs the sequential upload protocol: digest, duplicate lookup,
// optional confirmation, then the upload itself.
type Gate struct {
	Client *client.Client

	// Confirm is consulted on a duplicate match. Nil means duplicates
	// are always uploaded (matching the "continue anyway" choice).
	Confirm ConfirmFunc

	// HashProgress, if set, receives cumulative bytes hashed.
	HashProgress hash.Progress
}

// Result reports what the gate did.
type Result struct {
	// Digest is the BLAKE3 hex digest of the uploaded content.
	Digest string
	// Duplicate is the pre-existing package with identical content,
	// if any was found.
	Duplicate *protocol.Package
	// Package is the catalog entry created by the upload.
	Package *protocol.Package
}

// Run uploads the file at path with the given metadata. The digest
// computation and the duplicate lookup both complete before any upload
// bytes are transmitted. The duplicate check is advisory: a concurrent
// identical upload can still slip past it.
func (g *Gate) Run(ctx context.Context, path string, req client.UploadRequest) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &hash.ReadError{Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &hash.ReadError{Err: err}
	}

	digest, err := hash.Sum(f, info.Size(), g.HashProgress)
	if err != nil {
		return nil, err
	}
	logging.Debug("content hashed",
		zap.String("digest", digest),
		zap.Int64("size", info.Size()))

	check, err := g.Client.CheckDuplicate(ctx, digest)
	if err != nil {
		return nil, err
	}

	result := &Result{Digest: digest}
	if check.Duplicate {
		result.Duplicate = check.Package
		if g.Confirm != nil {
			proceed, err := g.Confirm(check.Package)
			if err != nil {
				return nil, err
			}
			if !proceed {
				return nil, ErrCancelled
			}
		}
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, &hash.ReadError{Err: err}
	}

	if req.Filename == "" {
		req.Filename = filepath.Base(path)
	}
	req.Content = f

	pkg, err := g.Client.Upload(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", req.Filename, err)
	}
	result.Package = pkg

	logging.Info("package uploaded",
		zap.String("name", req.Name),
		zap.String("version", req.Version),
		zap.String("digest", digest))
	return result, nil
}
