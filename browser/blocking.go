package browser

import "sort"

// resourcePatterns maps the configured resource classes to URL patterns for
// Network.setBlockedURLs. The Fetch domain is never used: it conflicts with
// the Network events the interceptor depends on.
var resourcePatterns = map[string][]string{
	"Image": {
		"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
		"*.avif", "*.bmp",
	},
	"Font":       {"*.woff", "*.woff2", "*.ttf", "*.eot", "*.otf"},
	"Media":      {"*.mp4", "*.webm", "*.m4v", "*.mov", "*.mp3", "*.m4a", "*.ogg", "*.wav"},
	"Stylesheet": {"*.css"},
}

// adDomains is a set of well-known ad and tracking domains to block
// when BlockAds is enabled.
var adDomains = map[string]struct{}{
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googleadservices.com":  {},
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"googletagservices.com": {},
	"facebook.net":          {},
	"adnxs.com":             {},
	"adsrvr.org":            {},
	"amazon-adsystem.com":   {},
	"criteo.com":            {},
	"criteo.net":            {},
	"scorecardresearch.com": {},
	"hotjar.com":            {},
	"mixpanel.com":          {},
	"demdex.net":            {},
	"krxd.net":              {},
	"rlcdn.com":             {},
	"siape.veta.naver.com":  {},
	"tivan.naver.com":       {},
	"wcs.naver.net":         {},
}

// blockedURLPatterns builds the pattern list for the configured resource
// classes. Unknown class names are ignored. Returns nil if there is nothing
// to block.
func blockedURLPatterns(classes []string, blockAds bool) []string {
	var patterns []string
	seen := make(map[string]struct{})
	for _, class := range classes {
		for _, p := range resourcePatterns[class] {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			patterns = append(patterns, p)
		}
	}
	if blockAds {
		hosts := make([]string, 0, len(adDomains))
		for host := range adDomains {
			hosts = append(hosts, host)
		}
		sort.Strings(hosts)
		for _, host := range hosts {
			patterns = append(patterns, "*://"+host+"/*", "*."+host+"/*")
		}
	}
	return patterns
}
