package pipeline

import (
	"net/url"
	"strings"
)

// ResolveKeyword accepts either a bare keyword or a full search-page URL.
// For URL-shaped input the keyword is the path segment that follows marker,
// cut at the query string, fragment or next slash and then percent-decoded,
// so an escaped slash stays part of the keyword. When that extraction fails
// or yields nothing, the input is returned verbatim.
//
// Input that merely contains the marker as text is not validated further; a
// plain keyword only takes the URL path when it also contains "http".
func ResolveKeyword(input, marker string) string {
	if !strings.Contains(input, "http") || marker == "" {
		return input
	}

	_, rest, found := strings.Cut(input, marker)
	if !found {
		return input
	}
	rest, _, _ = strings.Cut(rest, "?")
	rest, _, _ = strings.Cut(rest, "#")
	rest, _, _ = strings.Cut(rest, "/")

	decoded, err := url.PathUnescape(rest)
	if err != nil {
		return input
	}
	if decoded = strings.TrimSpace(decoded); decoded == "" {
		return input
	}
	return decoded
}
