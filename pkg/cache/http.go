package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ETag returns a strong entity tag for a response body.
func ETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:12]) + `"`
}

// NotModified reports whether the request's If-None-Match header matches
// etag, in which case the response can be a bodiless 304.
func NotModified(req *http.Request, etag string) bool {
	if req == nil || etag == "" {
		return false
	}

	header := req.Header.Get("If-None-Match")
	if header == "" {
		return false
	}
	if strings.TrimSpace(header) == "*" {
		return true
	}

	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}

// SetCacheHeaders adds ETag and Cache-Control headers for a response
// that may be reused for maxAge.
func SetCacheHeaders(header http.Header, etag string, maxAge time.Duration) {
	if header == nil {
		return
	}
	if etag != "" {
		header.Set("ETag", etag)
	}
	if maxAge > 0 {
		header.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds())))
	}
}
