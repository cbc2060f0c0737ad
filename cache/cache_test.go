package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/maprank/models"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func response(keyword string) *models.SearchResponse {
	return &models.SearchResponse{Success: true, Keyword: keyword}
}

func TestKey_DistinguishesFields(t *testing.T) {
	base := Key("naver", "피자", 30)

	assert.Equal(t, base, Key("naver", "피자", 30))
	assert.NotEqual(t, base, Key("naver", "피자", 31))
	assert.NotEqual(t, base, Key("naver", "치킨", 30))
	assert.NotEqual(t, base, Key("other", "피자", 30))
}

func TestGet_ZeroMaxAgeBypasses(t *testing.T) {
	c := New(10)
	defer c.Close()

	c.Set("k", response("a"))

	_, ok := c.Get("k", 0)
	assert.False(t, ok)
}

func TestGet_HitWithinMaxAge(t *testing.T) {
	c := New(10)
	defer c.Close()

	c.Set("k", response("a"))

	got, ok := c.Get("k", 60_000)
	require.True(t, ok)
	assert.Equal(t, "a", got.Keyword)
}

func TestGet_StaleEntryMisses(t *testing.T) {
	c := New(10)
	defer c.Close()

	c.Set("k", response("a"))
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("k", 1)
	assert.False(t, ok)
}

func TestSet_EvictsAtCapacity(t *testing.T) {
	c := New(2)
	defer c.Close()

	c.Set("a", response("a"))
	c.Set("b", response("b"))
	c.Set("c", response("c"))

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("c", 60_000)
	assert.True(t, ok, "newest entry must survive eviction")
}

func TestSet_OverwriteDoesNotEvict(t *testing.T) {
	c := New(2)
	defer c.Close()

	c.Set("a", response("a"))
	c.Set("b", response("b"))
	c.Set("a", response("a2"))

	assert.Equal(t, 2, c.Len())
	got, ok := c.Get("a", 60_000)
	require.True(t, ok)
	assert.Equal(t, "a2", got.Keyword)
}

func TestCleanupLoop_EvictsExpired(t *testing.T) {
	c := newCache(10, time.Millisecond, 5*time.Millisecond)
	defer c.Close()

	c.Set("k", response("a"))

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestClose_Idempotent(t *testing.T) {
	c := New(1)
	c.Close()
	c.Close()
}
