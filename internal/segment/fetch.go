package segment

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	specimage "spectrogram-annotator/internal/image"
	"spectrogram-annotator/internal/recording"
	"spectrogram-annotator/pkg/geometry"

	"golang.org/x/sync/singleflight"
)

// HTTPFetcher loads chunk images over HTTP. Concurrent loads of one URL
// share a single request.
type HTTPFetcher struct {
	Client *http.Client
	group  singleflight.Group
}

// NewHTTPFetcher creates a fetcher with its own client.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

// Fetch implements Fetcher. The shared request is not tied to any one
// caller: cancelling ctx only stops this caller from waiting, and the
// request itself is bounded by the fetcher timeout.
func (f *HTTPFetcher) Fetch(ctx context.Context, u string) (image.Image, error) {
	ch := f.group.DoChan(u, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout())
		defer cancel()
		return f.get(shared, u)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(image.Image), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *HTTPFetcher) timeout() time.Duration {
	if f.Client != nil && f.Client.Timeout > 0 {
		return f.Client.Timeout
	}
	return DefaultTimeout
}

func (f *HTTPFetcher) get(ctx context.Context, u string) (image.Image, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	img, _, err := specimage.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u, err)
	}
	return img, nil
}

// FileFetcher loads chunk images from local files; the URL is a path.
type FileFetcher struct{}

// Fetch implements Fetcher.
func (FileFetcher) Fetch(ctx context.Context, path string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return specimage.Load(path)
}

// ServiceURL returns a URLFunc for an HTTP spectrogram service. The chunk
// and every render parameter are passed as query arguments.
func ServiceURL(base string) URLFunc {
	return func(recordingID string, seg geometry.Interval, p recording.Parameters) string {
		f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
		q := url.Values{}
		q.Set("recording_id", recordingID)
		q.Set("start_time", f(seg.Min))
		q.Set("end_time", f(seg.Max))
		q.Set("window_size", f(p.WindowSize))
		q.Set("overlap", f(p.Overlap))
		q.Set("window", p.Window)
		q.Set("cmap", p.ColorMap)
		q.Set("scale", string(p.Scale))
		q.Set("min_dB", f(p.MinDB))
		q.Set("max_dB", f(p.MaxDB))
		q.Set("normalize", strconv.FormatBool(p.Normalize))
		q.Set("pcen", strconv.FormatBool(p.PCEN))
		q.Set("channel", strconv.Itoa(p.Channel))
		if p.LowFreq > 0 {
			q.Set("low_freq", f(p.LowFreq))
		}
		if p.HighFreq > 0 {
			q.Set("high_freq", f(p.HighFreq))
		}
		return base + "?" + q.Encode()
	}
}

// DirURL returns a URLFunc naming pre-rendered tiles in dir as
// <recording>_<start>_<end>.png, for use with FileFetcher.
func DirURL(dir string) URLFunc {
	return func(recordingID string, seg geometry.Interval, _ recording.Parameters) string {
		name := fmt.Sprintf("%s_%.3f_%.3f.png", recordingID, seg.Min, seg.Max)
		return filepath.Join(dir, name)
	}
}

// Exists reports whether a local tile exists. Used by tools to report
// which chunks of a plan are missing.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
