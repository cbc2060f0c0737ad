package pipeline

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/use-agent/maprank/intercept"
)

// Target describes the provider page a pipeline drives and the contract
// of the background call it intercepts.
type Target struct {
	// Engine is the identifier callers use to select this target.
	Engine string

	// SearchURL is the search page prefix; the escaped keyword is appended.
	SearchURL string

	// KeywordMarker precedes the keyword in a search-page URL.
	KeywordMarker string

	// APIPathMarker identifies qualifying responses by URL substring.
	APIPathMarker string

	// Strategies locate the ranking list inside a qualifying response.
	Strategies []intercept.Strategy

	// FrameSelector locates the lazily-loading result list during recovery.
	FrameSelector string

	// DetailURLFormat renders a place's detail page from its id.
	DetailURLFormat string
}

// NaverMap is the Naver Map place-search target.
var NaverMap = Target{
	Engine:          "naver",
	SearchURL:       "https://map.naver.com/p/search/",
	KeywordMarker:   "search/",
	APIPathMarker:   intercept.AllSearchPath,
	Strategies:      intercept.AllSearchStrategies,
	FrameSelector:   "#searchIframe",
	DetailURLFormat: "https://pcmap.place.naver.com/hospital/%s/home",
}

// Targets lists the supported engines by identifier.
var Targets = map[string]Target{
	NaverMap.Engine: NaverMap,
}

// componentUnescaper undoes url.QueryEscape where it is stricter than a
// JavaScript URI component encoder.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// SearchPageURL builds the navigation address for a resolved keyword.
// Reserved characters such as + & = : @ $ are always escaped.
func (t Target) SearchPageURL(keyword string) string {
	return t.SearchURL + escapeComponent(keyword)
}

func escapeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

// DetailURL renders the detail page address for an entry id. It returns ""
// when id is absent.
func (t Target) DetailURL(id any) string {
	s := idString(id)
	if s == "" {
		return ""
	}
	return fmt.Sprintf(t.DetailURLFormat, url.PathEscape(s))
}

func idString(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
