package zeroframe

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
)

const bigfileLogPrefix = "zeroframe:bigfile"

// BigfileUploadInit registers an upload of size bytes to innerPath and returns
// where to send the body.
func (c *Client) BigfileUploadInit(ctx context.Context, innerPath string, size int64) (BigfileUpload, error) {
	return call[BigfileUpload](ctx, c, "bigfileUploadInit", innerPath, size)
}

// BigfileUploadParams holds the inputs of BigfileUpload.
type BigfileUploadParams struct {
	// UIURL is the ZeroNet UI server the upload URL is relative to.
	UIURL     string
	InnerPath string
	Size      int64
	Body      io.Reader
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// BigfileUpload initializes an upload and posts the body to the returned URL as
// a multipart form.
func (c *Client) BigfileUpload(ctx context.Context, params BigfileUploadParams) (BigfileUpload, error) {
	upload, err := c.BigfileUploadInit(ctx, params.InnerPath, params.Size)
	if err != nil {
		return BigfileUpload{}, err
	}

	target, err := resolveUploadURL(params.UIURL, upload.URL)
	if err != nil {
		return upload, fmt.Errorf("%s - invalid upload URL %q: %w", bigfileLogPrefix, upload.URL, err)
	}

	client := params.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", path.Base(params.InnerPath))
		if err == nil {
			_, err = io.Copy(part, params.Body)
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, pr)
	if err != nil {
		pr.CloseWithError(err)
		return upload, fmt.Errorf("%s - failed to build upload request: %w", bigfileLogPrefix, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return upload, fmt.Errorf("%s - upload of %s failed: %w", bigfileLogPrefix, params.InnerPath, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return upload, fmt.Errorf("%s - upload of %s returned HTTP %d", bigfileLogPrefix, params.InnerPath, resp.StatusCode)
	}
	return upload, nil
}

func resolveUploadURL(base, ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if r.IsAbs() {
		return r.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}
