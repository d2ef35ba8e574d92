// Package upload talks to the tracker site's web endpoints: cookie login and
// multipart submission of a finished .torrent. It is glue around the
// authoring engine and carries no torrent logic of its own.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
)

// ErrBadCredentials means the site answered the login form without setting a
// session, i.e. username or password is wrong.
var ErrBadCredentials = errors.New("upload: login rejected")

// Client is an authenticated session against the site. All requests share one
// cookie jar; Login must succeed before Submit is useful.
type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient(baseURL string) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("upload: invalid base URL %q: %w", baseURL, err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		http: &http.Client{
			Jar:     jar,
			Timeout: 2 * time.Minute,
			// The site signals a successful login with a redirect; keep the
			// 302 visible instead of following it.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL: baseURL,
	}, nil
}

// Login posts the credential form and keeps the resulting session cookie.
// The site answers a successful login with a redirect and re-serves the login
// page (200) otherwise.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	form.WriteField("username", username)
	form.WriteField("password", password)
	form.WriteField("returnto", "/genrelist.php")
	if err := form.Close(); err != nil {
		return err
	}

	resp, err := c.post(ctx, "/takelogin.php", form.FormDataContentType(), &body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusFound:
		return nil
	case http.StatusOK:
		return ErrBadCredentials
	default:
		return fmt.Errorf("upload: unexpected login status %s", resp.Status)
	}
}

// Submission is one torrent plus the descriptive fields the site wants.
type Submission struct {
	TorrentPath string
	Title       string
	Category    string
	Description string
}

// Submit uploads the .torrent file with its form fields. Every submission
// carries a fresh request id so a retried upload can be told apart from a
// duplicate on the site side.
func (c *Client) Submit(ctx context.Context, sub Submission) error {
	f, err := os.Open(sub.TorrentPath)
	if err != nil {
		return fmt.Errorf("upload: open %s: %w", sub.TorrentPath, err)
	}
	defer f.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("torrent", filepath.Base(sub.TorrentPath))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("upload: read %s: %w", sub.TorrentPath, err)
	}
	form.WriteField("name", sub.Title)
	form.WriteField("type", sub.Category)
	form.WriteField("descr", sub.Description)
	form.WriteField("request_id", uuid.NewString())
	if err := form.Close(); err != nil {
		return err
	}

	resp, err := c.post(ctx, "/takeupload.php", form.FormDataContentType(), &body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusFound {
		return fmt.Errorf("upload: submission failed with status %s", resp.Status)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", userAgent())
	return c.http.Do(req)
}

func userAgent() string {
	switch runtime.GOOS {
	case "windows":
		return "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	case "darwin":
		return "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"
	default:
		return "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	}
}
