package gateway

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

// quoteValue wraps a value in double quotes so reserved characters
// (commas, parentheses, dots) survive inside logic trees and lists.
func quoteValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// searchFilter is the or=(...) filter matching term in name or description.
func searchFilter(term string) string {
	pattern := quoteValue("*" + term + "*")
	return fmt.Sprintf("(name.ilike.%s,description.ilike.%s)", pattern, pattern)
}

// filterParams encodes the catalog filters as PostgREST query parameters.
// "*" is the LIKE wildcard in PostgREST URLs.
func filterParams(f catalog.Filters) url.Values {
	v := url.Values{}
	f = f.Normalize()

	if f.Diet != "" {
		v.Set("diet", "eq."+f.Diet)
	}
	if f.LocomotionType != "" {
		v.Set("locomotion_type", "ilike."+f.LocomotionType)
	}
	if f.Search != "" {
		v.Set("or", searchFilter(f.Search))
	}
	if f.Era != "" {
		v.Set("temporal_range", "ilike.*"+f.Era+"*")
	}
	return v
}

// listParams encodes a page request: filters, name order and the row
// window [offset, offset+limit).
func listParams(q catalog.Query) url.Values {
	v := filterParams(q.Filters)
	v.Set("select", "*")
	v.Set("order", "name.asc")
	v.Set("offset", strconv.Itoa(q.Offset()))
	v.Set("limit", strconv.Itoa(q.Limit))
	return v
}

// namesFilter is the in.(...) filter for a set of names.
func namesFilter(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteValue(n)
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}

// parseContentRange extracts the total from a Content-Range header such
// as "0-11/37" or "*/0".
func parseContentRange(h string) (int, error) {
	i := strings.LastIndexByte(h, '/')
	if i < 0 {
		return 0, fmt.Errorf("malformed content-range %q", h)
	}
	total := h[i+1:]
	if total == "*" {
		return 0, fmt.Errorf("content-range %q has no exact count", h)
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("malformed content-range %q: %w", h, err)
	}
	return n, nil
}
