package filecache

import (
	"bufio"
	"bytes"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"fxrates-engine/internal/domain"

	"go.uber.org/zap"
)

// Snapshot persists a single global rate table: line 1 is the epoch-seconds timestamp,
// every following line is CODE=rate. Each Save replaces the file.
type Snapshot struct {
	path string
	log  *zap.Logger
	mu   sync.Mutex
}

func NewSnapshot(path string, log *zap.Logger) *Snapshot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Snapshot{path: path, log: log}
}

func (s *Snapshot) Path() string { return s.path }

// Save rewrites the snapshot. Failures are logged, never returned.
func (s *Snapshot) Save(rates map[string]float64, at time.Time) {
	norm := make(map[string]float64, len(rates))
	codes := make([]string, 0, len(rates))
	for c, r := range rates {
		c = domain.NormalizeCode(c)
		if _, dup := norm[c]; !dup {
			codes = append(codes, c)
		}
		norm[c] = r
	}
	sort.Strings(codes)

	var buf bytes.Buffer
	buf.WriteString(strconv.FormatInt(at.Unix(), 10))
	buf.WriteByte('\n')
	for _, c := range codes {
		buf.WriteString(c)
		buf.WriteByte('=')
		buf.WriteString(strconv.FormatFloat(norm[c], 'g', -1, 64))
		buf.WriteByte('\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := WriteFileAtomic(s.path, buf.Bytes()); err != nil {
		s.log.Warn("snapshot.write_failed", zap.String("path", s.path), zap.Error(err))
		return
	}
	s.log.Debug("snapshot.saved", zap.Int("rates", len(codes)), zap.Time("at", at.UTC()))
}

// LoadRates returns nil when the file is missing, has an invalid first line or holds no valid rates.
func (s *Snapshot) LoadRates() map[string]float64 {
	rates, _, ok := s.read()
	if !ok || len(rates) == 0 {
		return nil
	}
	return rates
}

// LoadTimestamp returns nil when the file is missing or its first line is not an epoch.
func (s *Snapshot) LoadTimestamp() *time.Time {
	_, at, ok := s.read()
	if !ok {
		return nil
	}
	return &at
}

func (s *Snapshot) read() (map[string]float64, time.Time, bool) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("snapshot.read_failed", zap.String("path", s.path), zap.Error(err))
		}
		return nil, time.Time{}, false
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	if !sc.Scan() {
		return nil, time.Time{}, false
	}
	epoch, err := strconv.ParseInt(strings.TrimSpace(sc.Text()), 10, 64)
	if err != nil {
		s.log.Warn("snapshot.bad_timestamp", zap.String("path", s.path), zap.Error(err))
		return nil, time.Time{}, false
	}

	rates := map[string]float64{}
	for sc.Scan() {
		code, raw, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		r, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || r <= 0 {
			continue
		}
		c, err := domain.NewCurrency(code, "")
		if err != nil {
			continue
		}
		rates[c.Code] = r
	}
	return rates, time.Unix(epoch, 0).UTC(), true
}
