package pattern

import (
	"regexp"
	"sync"
)

// compileResult caches the outcome of compiling one rule, including a
// failure: a broken rule stays broken for the process lifetime, so there is
// no point recompiling it on every request.
type compileResult struct {
	re  *regexp.Regexp
	err error
}

// regexCache is a process-lifetime cache of compiled rules.
// Thread-safe; rules are stored data and change rarely, so entries are
// never evicted.
type regexCache struct {
	mu      sync.RWMutex
	entries map[string]compileResult
	hits    uint64
	misses  uint64
}

func newRegexCache() *regexCache {
	return &regexCache{
		entries: make(map[string]compileResult),
	}
}

// get returns the compiled rule, compiling and caching it on first use
func (c *regexCache) get(rule string) (*regexp.Regexp, error) {
	c.mu.RLock()
	res, ok := c.entries[rule]
	c.mu.RUnlock()

	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return res.re, res.err
	}

	re, err := regexp.Compile(rule)

	c.mu.Lock()
	c.entries[rule] = compileResult{re: re, err: err}
	c.misses++
	c.mu.Unlock()

	return re, err
}

// CacheStats reports cache effectiveness counters
type CacheStats struct {
	Size   int    `json:"size"`
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

func (c *regexCache) stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Size:   len(c.entries),
		Hits:   c.hits,
		Misses: c.misses,
	}
}
