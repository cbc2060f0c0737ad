package intercept

import "github.com/ysmood/gson"

// Strategy names one place a ranking list may live inside a captured
// document, addressed by a dotted gson path.
type Strategy struct {
	Name string
	Path string
}

// Extract returns the list found at the strategy's path, or nil when the
// path is absent or does not hold an array.
func (s Strategy) Extract(doc gson.JSON) []gson.JSON {
	v, ok := doc.Gets(gson.Path(s.Path)...)
	if !ok {
		return nil
	}
	if _, isArr := v.Val().([]interface{}); !isArr {
		return nil
	}
	return v.Arr()
}

// AllSearchStrategies probes the provider's allSearch payload: the place
// listing first, then the site listing.
var AllSearchStrategies = []Strategy{
	{Name: "place", Path: "result.place.list"},
	{Name: "site", Path: "result.site.list"},
}

// Probe runs strategies in priority order and returns the first non-empty
// list together with the name of the strategy that produced it.
func Probe(doc gson.JSON, strategies []Strategy) ([]gson.JSON, string) {
	for _, s := range strategies {
		if list := s.Extract(doc); len(list) > 0 {
			return list, s.Name
		}
	}
	return nil, ""
}
