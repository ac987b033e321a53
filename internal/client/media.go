package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
)

// HTTPMediaResolver checks that a media URL is reachable before the timeline
// renders it.
type HTTPMediaResolver struct {
	http *http.Client
}

func NewHTTPMediaResolver(hc *http.Client) *HTTPMediaResolver {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPMediaResolver{http: hc}
}

var mediaTypePrefix = map[lead.ContentKind]string{
	lead.ContentImage:   "image/",
	lead.ContentSticker: "image/",
	lead.ContentVideo:   "video/",
	lead.ContentAudio:   "audio/",
}

func (r *HTTPMediaResolver) Resolve(ctx context.Context, kind lead.ContentKind, mediaURL string) (string, error) {
	if mediaURL == "" {
		return "", fmt.Errorf("%s without media url", kind)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, mediaURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("media %s: status %d", mediaURL, resp.StatusCode)
	}
	if prefix, ok := mediaTypePrefix[kind]; ok {
		ct := resp.Header.Get("Content-Type")
		if ct != "" && !strings.HasPrefix(ct, prefix) && !strings.HasPrefix(ct, "application/octet-stream") {
			return "", fmt.Errorf("media %s: content type %q does not match %s", mediaURL, ct, kind)
		}
	}
	return mediaURL, nil
}
