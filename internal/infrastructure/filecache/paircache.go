package filecache

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"fxrates-engine/internal/application"
	"fxrates-engine/internal/domain"

	"go.uber.org/zap"
)

var _ application.PairStore = (*PairCache)(nil)

type pairEntry struct {
	rate float64
	at   time.Time
}

type pairKey struct{ from, to string }

// PairCache keeps one rate per ordered pair and rewrites the whole file (FROM,TO,RATE,EPOCH)
// on every Put. The same mutex covers the map and the disk write.
type PairCache struct {
	path    string
	log     *zap.Logger
	mu      sync.Mutex
	entries map[pairKey]pairEntry
}

// NewPairCache loads existing entries from path, skipping malformed lines.
func NewPairCache(path string, log *zap.Logger) *PairCache {
	if log == nil {
		log = zap.NewNop()
	}
	c := &PairCache{path: path, log: log, entries: map[pairKey]pairEntry{}}
	c.load()
	return c
}

func (c *PairCache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("pair_cache.read_failed", zap.String("path", c.path), zap.Error(err))
		}
		return
	}
	skipped := 0
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		k, e, ok := parsePairLine(line)
		if !ok {
			skipped++
			continue
		}
		c.entries[k] = e
	}
	c.log.Debug("pair_cache.loaded", zap.Int("entries", len(c.entries)), zap.Int("skipped", skipped))
}

func parsePairLine(line string) (pairKey, pairEntry, bool) {
	parts := strings.Split(line, ",")
	if len(parts) != 4 {
		return pairKey{}, pairEntry{}, false
	}
	from, err := domain.NewCurrency(parts[0], "")
	if err != nil {
		return pairKey{}, pairEntry{}, false
	}
	to, err := domain.NewCurrency(parts[1], "")
	if err != nil {
		return pairKey{}, pairEntry{}, false
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil || rate <= 0 {
		return pairKey{}, pairEntry{}, false
	}
	epoch, err := strconv.ParseInt(strings.TrimSpace(parts[3]), 10, 64)
	if err != nil {
		return pairKey{}, pairEntry{}, false
	}
	return pairKey{from.Code, to.Code}, pairEntry{rate: rate, at: time.Unix(epoch, 0).UTC()}, true
}

// Put upserts the pair and persists the full cache. Write failures are logged; the in-memory
// entry is kept.
func (c *PairCache) Put(_ context.Context, from, to string, rate float64, at time.Time) {
	k := pairKey{domain.NormalizeCode(from), domain.NormalizeCode(to)}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = pairEntry{rate: rate, at: at.UTC()}
	if err := WriteFileAtomic(c.path, c.encodeLocked()); err != nil {
		c.log.Warn("pair_cache.write_failed", zap.String("path", c.path), zap.String("pair", domain.PairKey(k.from, k.to)), zap.Error(err))
	}
}

func (c *PairCache) encodeLocked() []byte {
	keys := make([]pairKey, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		return keys[i].to < keys[j].to
	})
	var buf bytes.Buffer
	for _, k := range keys {
		e := c.entries[k]
		buf.WriteString(k.from)
		buf.WriteByte(',')
		buf.WriteString(k.to)
		buf.WriteByte(',')
		buf.WriteString(strconv.FormatFloat(e.rate, 'g', -1, 64))
		buf.WriteByte(',')
		buf.WriteString(strconv.FormatInt(e.at.Unix(), 10))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func (c *PairCache) Rate(_ context.Context, from, to string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[pairKey{domain.NormalizeCode(from), domain.NormalizeCode(to)}]
	return e.rate, ok
}

func (c *PairCache) Timestamp(_ context.Context, from, to string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[pairKey{domain.NormalizeCode(from), domain.NormalizeCode(to)}]
	return e.at, ok
}

// All returns every cached rate keyed by "FROM->TO".
func (c *PairCache) All(context.Context) map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]float64, len(c.entries))
	for k, e := range c.entries {
		out[domain.PairKey(k.from, k.to)] = e.rate
	}
	return out
}

// LatestTimestamp is the newest entry time; false when the cache is empty.
func (c *PairCache) LatestTimestamp(context.Context) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var latest time.Time
	for _, e := range c.entries {
		if e.at.After(latest) {
			latest = e.at
		}
	}
	return latest, !latest.IsZero()
}
