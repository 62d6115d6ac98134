// Package download provides an HTTP-backed ports.ArchiveDownloader.
package download

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// Client downloads files over HTTP(S).
type Client struct {
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithoutTLSVerify disables certificate verification. Unsafe; mirrors the
// caller-toggleable noSSLVerify configuration option.
func WithoutTLSVerify() Option {
	return func(c *Client) {
		transport := &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
		c.http.Transport = transport
	}
}

// NewClient creates an HTTP download client.
func NewClient(opts ...Option) *Client {
	c := &Client{http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Download fetches url and streams it to destPath, creating parent
// directories as needed.
func (c *Client) Download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: %s returned status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}
