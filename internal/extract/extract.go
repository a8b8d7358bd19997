// Package extract locates well-known values inside provider response payloads.
// The provider's response shape varies by model version and code path, so the
// video URI is found by checking the documented field locations first and then
// falling back to a generic deep scan of the decoded JSON tree.
package extract

import (
	"sort"
	"strings"
)

// mediaMarkers are path fragments that identify a retrievable video resource
// in strict mode. They filter out unrelated strings that merely start with a
// URI scheme.
var mediaMarkers = []string{".mp4", ".webm", ".mov", ":download", "download"}

// maxDepth bounds the deep scan. Provider payloads are tree-shaped JSON with
// no back-references, but adversarial input should not blow the stack.
const maxDepth = 32

// Options controls URI matching.
type Options struct {
	// RequireMediaMarker only accepts strings whose path looks like a video
	// resource, not just any http(s) URL.
	RequireMediaMarker bool
}

// FindURI searches a decoded JSON payload for a video URI. Known field
// locations are trusted as-is; the blind deep scan prefers strings that look
// like media resources and only accepts an arbitrary http(s) string when
// nothing media-shaped exists anywhere in the tree.
func FindURI(payload any) (string, bool) {
	if uri, ok := knownFields(payload, Options{}); ok {
		return uri, true
	}
	if uri, ok := FindURIStrict(payload); ok {
		return uri, true
	}
	return deepScan(payload, Options{}, 0)
}

// FindURIStrict is FindURI with media-marker matching enforced everywhere,
// known fields included.
func FindURIStrict(payload any) (string, bool) {
	opts := Options{RequireMediaMarker: true}
	if uri, ok := knownFields(payload, opts); ok {
		return uri, true
	}
	return deepScan(payload, opts, 0)
}

// knownFields checks the documented URI locations, in precedence order.
func knownFields(payload any, opts Options) (string, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return "", false
	}
	if uri, ok := uriString(obj["videoUri"], opts); ok {
		return uri, true
	}
	if video, ok := obj["video"].(map[string]any); ok {
		if uri, ok := uriString(video["uri"], opts); ok {
			return uri, true
		}
	}
	return uriString(obj["uri"], opts)
}

// deepScan walks the tree depth-first. Map keys are visited in sorted order so
// the result is deterministic regardless of Go's map iteration order.
func deepScan(v any, opts Options, depth int) (string, bool) {
	if depth > maxDepth {
		return "", false
	}

	switch t := v.(type) {
	case string:
		return uriString(t, opts)
	case []any:
		for _, item := range t {
			if uri, ok := deepScan(item, opts, depth+1); ok {
				return uri, true
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if uri, ok := deepScan(t[k], opts, depth+1); ok {
				return uri, true
			}
		}
	}
	return "", false
}

// uriString reports whether v is a string that looks like a retrievable
// resource locator.
func uriString(v any, opts Options) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return "", false
	}
	if opts.RequireMediaMarker && !hasMediaMarker(s) {
		return "", false
	}
	return s, true
}

func hasMediaMarker(s string) bool {
	lower := strings.ToLower(s)
	for _, marker := range mediaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// FindOperationName extracts the long-running operation name from a start
// response. The provider is consistent about where this lives, so only the
// fixed candidate paths are checked; no deep scan.
func FindOperationName(payload any) (string, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return "", false
	}
	if name, ok := obj["name"].(string); ok && name != "" {
		return name, true
	}
	if op, ok := obj["operation"].(map[string]any); ok {
		if name, ok := op["name"].(string); ok && name != "" {
			return name, true
		}
	}
	return "", false
}
