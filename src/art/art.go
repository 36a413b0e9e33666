package art

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// ErrInvalidURL is returned for image URLs which are not absolute http(s) URLs
// with a host. No request is made for them.
var ErrInvalidURL = errors.New("invalid image URL")

// ErrFetchFailed is returned when the image could not be downloaded: the server
// was unreachable, timed out or replied with a non 2xx status.
var ErrFetchFailed = errors.New("image fetch failed")

// ErrImageTooBig is returned when some image has been found but it is deemed too
// big to handle. Errors matching it match ErrFetchFailed as well.
var ErrImageTooBig = errors.New("image is too big")

// Defaults used by NewClient when it is given zero values.
const (
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	DefaultTimeout = 30 * time.Second
	DefaultMaxSize = 10 << 20
)

const acceptHeader = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"

//counterfeiter:generate . Fetcher

// Fetcher defines a type which is capable of downloading a remote image.
type Fetcher interface {
	// Fetch downloads the image at rawURL.
	Fetch(ctx context.Context, rawURL string) (*Download, error)
}

// Download is a successfully fetched image payload.
type Download struct {
	URL         string
	Body        []byte
	ContentType string

	// Ext is the file extension, with a leading dot, under which the payload
	// should be stored.
	Ext string
}

// Client downloads artist images over HTTP. Every request carries a browser
// like User-Agent since some image hosts refuse unknown clients. It is safe for
// concurrent use.
//
// It implements Fetcher.
type Client struct {
	useragent string
	timeout   time.Duration
	maxSize   int64

	httpClient *http.Client
}

// NewClient returns fully configured Client. Zero values for any of the
// arguments select the package defaults.
func NewClient(useragent string, timeout time.Duration, maxSize int64) *Client {
	if useragent == "" {
		useragent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	return &Client{
		useragent:  useragent,
		timeout:    timeout,
		maxSize:    maxSize,
		httpClient: http.DefaultClient,
	}
}

// ValidateURL checks that rawURL is an absolute http or https URL with a host.
func ValidateURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	return u, nil
}

// Fetch downloads the image at rawURL. Invalid URLs fail with ErrInvalidURL
// before any request is made. Network errors, timeouts and non 2xx responses
// are wrapped in ErrFetchFailed. Bodies over the size limit give ErrImageTooBig.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Download, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %s", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", c.useragent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrFetchFailed, u.Host,
			resp.StatusCode)
	}

	if resp.ContentLength > c.maxSize {
		return nil, fmt.Errorf("%w: %w: %d bytes", ErrFetchFailed, ErrImageTooBig,
			resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrFetchFailed, err)
	}
	if int64(len(body)) > c.maxSize {
		return nil, fmt.Errorf("%w: %w: over %d bytes", ErrFetchFailed, ErrImageTooBig,
			c.maxSize)
	}

	contentType := resp.Header.Get("Content-Type")
	return &Download{
		URL:         u.String(),
		Body:        body,
		ContentType: contentType,
		Ext:         Extension(contentType, u.Path),
	}, nil
}

var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var knownURLExts = []string{".jpg", ".jpeg", ".png", ".webp"}

// Extension decides the stored file extension of an image. The content type
// wins when it is a known image type. Otherwise the URL path suffix is used
// if it is a known one. Everything else is stored as ".jpg".
func Extension(contentType, urlPath string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := extByContentType[strings.ToLower(mt)]; ok {
			return ext
		}
	}

	suffix := strings.ToLower(path.Ext(urlPath))
	for _, ext := range knownURLExts {
		if suffix == ext {
			return ext
		}
	}

	return ".jpg"
}
