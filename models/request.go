package models

// SearchRequest is the payload for POST /api/v1/search.
type SearchRequest struct {
	// Keyword is the search term, or a full map-search URL containing it. Required.
	Keyword string `json:"keyword" binding:"required"`

	// Engine selects the provider pipeline. Default: "naver".
	Engine string `json:"engine,omitempty"`

	// Limit caps the number of ranked entries returned.
	// Default: 30. Must be at least 1.
	Limit int `json:"limit,omitempty" binding:"omitempty,min=1"`

	// MaxAge enables the response cache: a cached response younger than
	// MaxAge milliseconds is returned without launching a browser.
	// Default: 0 (cache bypassed).
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (r *SearchRequest) Defaults(defaultLimit int) {
	if r.Engine == "" {
		r.Engine = "naver"
	}
	if r.Limit == 0 {
		r.Limit = defaultLimit
	}
}
