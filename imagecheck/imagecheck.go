// Package imagecheck filters image links returned by search providers down
// to the ones that resolve to an actual image. Validation is best effort:
// every failure mode degrades to "not an image".
package imagecheck

import (
	"context"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hupe1980/searchmesh/fanout"
	"github.com/hupe1980/searchmesh/logging"
)

// DefaultTimeout bounds a single probe regardless of the caller's deadline.
const DefaultTimeout = 5 * time.Second

// Image is a candidate image link.
type Image struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Options configure a Validator.
type Options struct {
	Timeout     time.Duration
	HTTPClient  *http.Client
	MaxParallel int
	Logger      logging.Logger
}

// Validator probes image links with HEAD requests.
type Validator struct {
	opts Options
}

// New creates a Validator.
func New(optFns ...func(o *Options)) *Validator {
	opts := Options{
		Timeout:     DefaultTimeout,
		MaxParallel: fanout.DefaultMaxParallel,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Validator{opts: opts}
}

// IsValidImage reports whether a HEAD request for rawURL answers 2xx with an
// image/* content type within the probe timeout. It never fails: timeouts,
// network errors and cancellation all yield false.
func (v *Validator) IsValidImage(ctx context.Context, rawURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, v.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	resp, err := v.opts.HTTPClient.Do(req)
	if err != nil {
		v.opts.Logger.Debug("imagecheck.probe.failed", "error", err.Error())
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}
	return isImageType(resp.Header.Get("Content-Type"))
}

func isImageType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}

// FilterImages sanitizes and probes all images concurrently and returns the
// valid ones in input order. With requireDescription set, images without a
// description are dropped as well.
func (v *Validator) FilterImages(ctx context.Context, images []Image, requireDescription bool) []Image {
	results, _ := fanout.Run(ctx, images, func(ctx context.Context, img Image) (*Image, error) {
		if requireDescription && strings.TrimSpace(img.Description) == "" {
			return nil, nil
		}
		img.URL = SanitizeURL(img.URL)
		if !v.IsValidImage(ctx, img.URL) {
			return nil, nil
		}
		return &img, nil
	}, fanout.WithMaxParallel(v.opts.MaxParallel), fanout.WithName("imagecheck"), fanout.WithLogger(v.opts.Logger))

	valid := make([]Image, 0, len(images))
	for _, img := range fanout.Successes(results) {
		if img != nil {
			valid = append(valid, *img)
		}
	}
	return valid
}

var whitespace = regexp.MustCompile(`\s+`)

// SanitizeURL replaces every whitespace run with %20.
func SanitizeURL(u string) string {
	return whitespace.ReplaceAllString(u, "%20")
}
