package redisstore

import (
	"context"
	"strconv"
	"strings"
	"time"

	"fxrates-engine/internal/application"
	"fxrates-engine/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ application.PairStore = (*PairCache)(nil)

// PairCache keeps every ordered pair as one field of the hash <prefix>:pairs.
// Field is "FROM,TO", value is "RATE,EPOCH"; HSET is the upsert.
type PairCache struct {
	Client *redis.Client
	Key    string
	Log    *zap.Logger
}

func NewPairCache(client *redis.Client, prefix string, log *zap.Logger) *PairCache {
	if prefix == "" {
		prefix = "fxrates"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PairCache{Client: client, Key: prefix + ":pairs", Log: log}
}

func field(from, to string) string {
	return domain.NormalizeCode(from) + "," + domain.NormalizeCode(to)
}

func (s *PairCache) Put(ctx context.Context, from, to string, rate float64, at time.Time) {
	val := strconv.FormatFloat(rate, 'g', -1, 64) + "," + strconv.FormatInt(at.Unix(), 10)
	if err := s.Client.HSet(ctx, s.Key, field(from, to), val).Err(); err != nil {
		s.Log.Warn("pair_cache.write_failed", zap.String("key", s.Key), zap.String("pair", domain.PairKey(from, to)), zap.Error(err))
	}
}

func (s *PairCache) Rate(ctx context.Context, from, to string) (float64, bool) {
	rate, _, ok := s.get(ctx, from, to)
	return rate, ok
}

func (s *PairCache) Timestamp(ctx context.Context, from, to string) (time.Time, bool) {
	_, at, ok := s.get(ctx, from, to)
	return at, ok
}

func (s *PairCache) get(ctx context.Context, from, to string) (float64, time.Time, bool) {
	raw, err := s.Client.HGet(ctx, s.Key, field(from, to)).Result()
	if err != nil {
		if err != redis.Nil {
			s.Log.Warn("pair_cache.read_failed", zap.String("key", s.Key), zap.Error(err))
		}
		return 0, time.Time{}, false
	}
	return parseValue(raw)
}

func (s *PairCache) All(ctx context.Context) map[string]float64 {
	out := map[string]float64{}
	for f, e := range s.entries(ctx) {
		out[f] = e.rate
	}
	return out
}

func (s *PairCache) LatestTimestamp(ctx context.Context) (time.Time, bool) {
	var latest time.Time
	for _, e := range s.entries(ctx) {
		if e.at.After(latest) {
			latest = e.at
		}
	}
	return latest, !latest.IsZero()
}

type entry struct {
	rate float64
	at   time.Time
}

// entries reads the whole hash keyed by "FROM->TO", skipping malformed fields.
func (s *PairCache) entries(ctx context.Context) map[string]entry {
	all, err := s.Client.HGetAll(ctx, s.Key).Result()
	if err != nil {
		s.Log.Warn("pair_cache.read_failed", zap.String("key", s.Key), zap.Error(err))
		return nil
	}
	out := make(map[string]entry, len(all))
	for f, raw := range all {
		from, to, ok := strings.Cut(f, ",")
		if !ok {
			continue
		}
		rate, at, ok := parseValue(raw)
		if !ok {
			continue
		}
		key := domain.PairKey(from, to)
		if _, _, valid := domain.SplitPairKey(key); !valid {
			continue
		}
		out[key] = entry{rate: rate, at: at}
	}
	return out
}

func parseValue(raw string) (float64, time.Time, bool) {
	r, e, ok := strings.Cut(raw, ",")
	if !ok {
		return 0, time.Time{}, false
	}
	rate, err := strconv.ParseFloat(r, 64)
	if err != nil || rate <= 0 {
		return 0, time.Time{}, false
	}
	epoch, err := strconv.ParseInt(e, 10, 64)
	if err != nil {
		return 0, time.Time{}, false
	}
	return rate, time.Unix(epoch, 0).UTC(), true
}
