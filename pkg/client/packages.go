package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fccur/portal/pkg/protocol"
)

// ListPackages fetches the full catalog.
func (c *Client) ListPackages(ctx context.Context) ([]protocol.Package, error) {
	var packages []protocol.Package
	if err := c.getJSON(ctx, "/api/packages", &packages); err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	return packages, nil
}

// GetPackage fetches one catalog entry by ID.
func (c *Client) GetPackage(ctx context.Context, id int64) (*protocol.Package, error) {
	var pkg protocol.Package
	if err := c.getJSON(ctx, "/api/packages/"+strconv.FormatInt(id, 10), &pkg); err != nil {
		return nil, fmt.Errorf("get package %d: %w", id, err)
	}
	return &pkg, nil
}

// GetStats fetches download statistics, most downloaded first.
func (c *Client) GetStats(ctx context.Context) ([]protocol.DownloadStats, error) {
	var stats []protocol.DownloadStats
	if err := c.getJSON(ctx, "/api/stats", &stats); err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}

// CheckDuplicate asks whether a package with this BLAKE3 digest already
// exists. The check is advisory: a concurrent upload of the same content
// can still land between the check and the upload.
func (c *Client) CheckDuplicate(ctx context.Context, hexDigest string) (*protocol.DuplicateCheckResponse, error) {
	if len(hexDigest) != 64 {
		return nil, fmt.Errorf("check duplicate: digest must be 64 hex chars, got %d", len(hexDigest))
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/api/check-duplicate?hash="+url.QueryEscape(hexDigest), nil)
	if err != nil {
		return nil, err
	}

	var result protocol.DuplicateCheckResponse
	if err := c.doJSON(req, &result); err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	return &result, nil
}

// UploadRequest describes a package upload.
type UploadRequest struct {
	Name        string
	Version     string
	Category    string
	Platform    string
	Description string
	ContentType string // "tool" or "material"
	CourseName  string // for materials

	Filename string
	Content  io.Reader

	ThumbnailName string
	Thumbnail     io.Reader
}

// Upload submits a new package as multipart/form-data. The content is
// streamed through a pipe rather than buffered.
func (c *Client) Upload(ctx context.Context, ur UploadRequest) (*protocol.Package, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeUploadForm(mw, ur)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.applyAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.setOnline(false)
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	c.setOnline(true)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload: %w", decodeServerError(resp))
	}

	var pkg protocol.Package
	if err := decodeOptionalJSON(resp.Body, &pkg); err != nil {
		return nil, fmt.Errorf("parse upload response: %w", err)
	}
	return &pkg, nil
}

func writeUploadForm(mw *multipart.Writer, ur UploadRequest) error {
	fields := map[string]string{
		"name":         ur.Name,
		"version":      ur.Version,
		"category":     ur.Category,
		"platform":     ur.Platform,
		"description":  ur.Description,
		"content_type": ur.ContentType,
		"course_name":  ur.CourseName,
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := mw.WriteField(name, value); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("package", ur.Filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, ur.Content); err != nil {
		return err
	}

	if ur.Thumbnail != nil {
		tpart, err := mw.CreateFormFile("thumbnail", ur.ThumbnailName)
		if err != nil {
			return err
		}
		if _, err := io.Copy(tpart, ur.Thumbnail); err != nil {
			return err
		}
	}
	return nil
}

// decodeOptionalJSON decodes into out, tolerating an empty body.
func decodeOptionalJSON(r io.Reader, out any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// Delete removes a package. Requires an admin session token.
func (c *Client) Delete(ctx context.Context, id int64) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/delete?id="+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return err
	}
	if err := c.doJSON(req, nil); err != nil {
		return fmt.Errorf("delete package %d: %w", id, err)
	}
	return nil
}

// DownloadInfo carries metadata from the download response headers.
type DownloadInfo struct {
	Filename   string
	Size       int64
	BLAKE3Hash string
	SHA256Hash string
}

// Download streams a package's content. The caller must close the reader.
func (c *Client) Download(ctx context.Context, id int64) (io.ReadCloser, *DownloadInfo, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/download/?id="+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.setOnline(false)
		return nil, nil, fmt.Errorf("download: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		c.setOnline(true)
		return nil, nil, fmt.Errorf("download: %w", decodeServerError(resp))
	}
	c.setOnline(true)

	info := &DownloadInfo{
		BLAKE3Hash: resp.Header.Get("X-BLAKE3-Hash"),
		SHA256Hash: resp.Header.Get("X-SHA256-Hash"),
	}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		info.Size, _ = strconv.ParseInt(cl, 10, 64)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			info.Filename = params["filename"]
		}
	}

	return resp.Body, info, nil
}

// ArchiveContents lists the files inside an uploaded archive.
func (c *Client) ArchiveContents(ctx context.Context, id int64) ([]protocol.ArchiveEntry, error) {
	var entries []protocol.ArchiveEntry
	if err := c.getJSON(ctx, "/api/archive/contents?id="+strconv.FormatInt(id, 10), &entries); err != nil {
		return nil, fmt.Errorf("archive contents: %w", err)
	}
	return entries, nil
}

// Checksum downloads the checksum file for a package. typ is "blake3"
// or "sha256".
func (c *Client) Checksum(ctx context.Context, id int64, typ string) (string, error) {
	q := url.Values{}
	q.Set("id", strconv.FormatInt(id, 10))
	q.Set("type", typ)

	req, err := c.newRequest(ctx, http.MethodGet, "/api/checksum?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.setOnline(false)
		return "", fmt.Errorf("checksum: %w", err)
	}
	defer resp.Body.Close()
	c.setOnline(true)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("checksum: %w", decodeServerError(resp))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
