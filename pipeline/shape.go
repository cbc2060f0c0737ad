package pipeline

import (
	"math"

	"github.com/use-agent/maprank/models"
	"github.com/ysmood/gson"
)

// Shape truncates captured entries to limit, keeping the captured order,
// and maps each one to a RankedResult. It has no side effects.
func Shape(entries []gson.JSON, limit int, t Target) []models.RankedResult {
	if limit < 0 {
		limit = 0
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]models.RankedResult, 0, len(entries))
	for _, e := range entries {
		id := field(e, "id")
		out = append(out, models.RankedResult{
			Rank:            field(e, "rank"),
			ID:              id,
			Name:            field(e, "name"),
			IsAd:            truthy(field(e, "isAd")),
			Category:        field(e, "category"),
			ReviewCount:     field(e, "reviewCount"),
			BlogReviewCount: field(e, "blogReviewCount"),
			Rating:          field(e, "starPoint"),
			Address:         field(e, "address"),
			DetailURL:       t.DetailURL(id),
		})
	}
	return out
}

// field returns the raw value under key, or nil when it is absent.
func field(e gson.JSON, key string) any {
	v, ok := e.Gets(key)
	if !ok {
		return nil
	}
	return v.Val()
}

// truthy follows JavaScript's boolean coercion for decoded JSON values.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	default:
		return true
	}
}
