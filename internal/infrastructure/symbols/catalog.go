package symbols

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"fxrates-engine/internal/domain"
	"fxrates-engine/internal/infrastructure/filecache"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Source is the remote symbols endpoint.
type Source interface {
	Symbols(ctx context.Context) (map[string]string, error)
}

const (
	DefaultRetryInterval = 30 * time.Second
	healTimeout          = 10 * time.Second
)

// Catalog is the set of supported currencies, persisted as CODE|Name lines.
// Lookups on an empty catalog retry the provider fetch, at most once per retry interval.
type Catalog struct {
	path   string
	source Source
	log    *zap.Logger

	mu     sync.RWMutex
	byCode map[string]domain.Currency
	sorted []domain.Currency

	sf            singleflight.Group
	retryInterval time.Duration
	lastFailure   atomic.Int64
}

func NewCatalog(path string, source Source, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{
		path:          path,
		source:        source,
		log:           log,
		byCode:        map[string]domain.Currency{},
		retryInterval: DefaultRetryInterval,
	}
}

// SetRetryInterval sets the minimum wait between self-heal fetches after a failure.
// Call it before the catalog is shared.
func (c *Catalog) SetRetryInterval(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.retryInterval = d
}

// Load reads the local file and falls back to a provider fetch when the file is missing,
// empty or yields no valid entries. Failures are logged only.
func (c *Catalog) Load(ctx context.Context) {
	n, err := c.loadFile()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		c.log.Warn("catalog.read_failed", zap.String("path", c.path), zap.Error(err))
	}
	if n > 0 {
		c.log.Info("catalog.loaded", zap.String("path", c.path), zap.Int("currencies", n))
		return
	}
	c.heal(ctx)
}

// ensure runs a self-heal fetch when the catalog is empty and the retry interval has passed.
func (c *Catalog) ensure() {
	if c.source == nil || c.Len() > 0 {
		return
	}
	if last := c.lastFailure.Load(); last != 0 && time.Since(time.Unix(0, last)) < c.retryInterval {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), healTimeout)
	defer cancel()
	c.heal(ctx)
}

func (c *Catalog) heal(ctx context.Context) {
	if err := c.fetch(ctx, true); err != nil {
		c.lastFailure.Store(time.Now().UnixNano())
		c.log.Warn("catalog.fetch_failed", zap.Error(err))
		return
	}
	c.lastFailure.Store(0)
}

// FetchAndPersist pulls the symbol table, writes it to disk and reloads the catalog from the file.
// On failure the in-memory catalog is left as is. Concurrent calls share one provider request.
func (c *Catalog) FetchAndPersist(ctx context.Context) error {
	return c.fetch(ctx, false)
}

func (c *Catalog) fetch(ctx context.Context, onlyIfEmpty bool) error {
	key := "fetch"
	if onlyIfEmpty {
		key = "heal"
	}
	_, err, _ := c.sf.Do(key, func() (any, error) {
		if onlyIfEmpty && c.Len() > 0 {
			return nil, nil
		}
		if c.source == nil {
			return nil, errors.New("no symbol source configured")
		}
		syms, err := c.source.Symbols(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch symbols: %w", err)
		}
		lines := encode(syms)
		if len(lines) == 0 {
			return nil, errors.New("fetch symbols: no valid currencies in response")
		}
		if err := filecache.WriteFileAtomic(c.path, lines); err != nil {
			return nil, fmt.Errorf("persist symbols: %w", err)
		}
		n, err := c.loadFile()
		if err != nil {
			return nil, fmt.Errorf("reload symbols: %w", err)
		}
		c.log.Info("catalog.fetched", zap.String("path", c.path), zap.Int("currencies", n))
		return nil, nil
	})
	return err
}

// loadFile replaces the in-memory set only when the file yields at least one entry.
func (c *Catalog) loadFile() (int, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return 0, err
	}
	parsed := parse(data)
	if len(parsed) == 0 {
		return 0, nil
	}
	sorted := make([]domain.Currency, 0, len(parsed))
	for _, cur := range parsed {
		sorted = append(sorted, cur)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })
	c.mu.Lock()
	c.byCode = parsed
	c.sorted = sorted
	c.mu.Unlock()
	return len(parsed), nil
}

func parse(data []byte) map[string]domain.Currency {
	out := map[string]domain.Currency{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		code, name, ok := strings.Cut(sc.Text(), "|")
		if !ok {
			continue
		}
		cur, err := domain.NewCurrency(code, Unescape(name))
		if err != nil || cur.DisplayName == "" {
			continue
		}
		out[cur.Code] = cur
	}
	return out
}

func encode(syms map[string]string) []byte {
	curs := make([]domain.Currency, 0, len(syms))
	for code, name := range syms {
		cur, err := domain.NewCurrency(code, Unescape(name))
		if err != nil || cur.DisplayName == "" {
			continue
		}
		curs = append(curs, cur)
	}
	sort.Slice(curs, func(i, j int) bool { return curs[i].Code < curs[j].Code })
	var buf bytes.Buffer
	for _, cur := range curs {
		buf.WriteString(cur.Code)
		buf.WriteByte('|')
		buf.WriteString(Escape(cur.DisplayName))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// ByCode is a case-insensitive code lookup.
func (c *Catalog) ByCode(code string) (domain.Currency, error) {
	c.ensure()
	c.mu.RLock()
	defer c.mu.RUnlock()
	cur, ok := c.byCode[domain.NormalizeCode(code)]
	if !ok {
		return domain.Currency{}, &domain.NotFoundError{Kind: "code", Key: code}
	}
	return cur, nil
}

// ByName scans for a case-insensitive display name match. Codes are scanned in
// sorted order, so a name shared by several codes resolves to the lowest code.
func (c *Catalog) ByName(name string) (domain.Currency, error) {
	c.ensure()
	want := strings.TrimSpace(name)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cur := range c.sorted {
		if strings.EqualFold(cur.DisplayName, want) {
			return cur, nil
		}
	}
	return domain.Currency{}, &domain.NotFoundError{Kind: "name", Key: name}
}

// All returns a copy sorted by code.
func (c *Catalog) All() []domain.Currency {
	c.ensure()
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Currency, len(c.sorted))
	copy(out, c.sorted)
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byCode)
}
