package api

import (
	"container/list"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"zone-match/internal/logger"
	"zone-match/internal/metrics"
	"zone-match/internal/zone"

	"github.com/redis/go-redis/v9"
)

// 文档注释：本地 LRU 缓存（数据集版本 + 坐标 + 期望值为键）
// 背景：热点坐标在短周期内重复查询，进程内缓存省去索引与判定开销；TTL 与 Redis 层一致。
// 约束：键包含数据集版本，重新装载后旧条目自然失效，无需主动清理。
type LRU struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
}

type kv struct {
	k   string
	v   zone.Result
	exp time.Time
}

func NewLRU(capacity int, ttl time.Duration) *LRU {
	return &LRU{cap: capacity, ttl: ttl, lst: list.New(), dict: make(map[string]*list.Element)}
}

func (c *LRU) Get(k string) (zone.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		it := e.Value.(kv)
		if time.Now().Before(it.exp) {
			c.lst.MoveToFront(e)
			return it.v, true
		}
		c.lst.Remove(e)
		delete(c.dict, k)
	}
	return zone.Result{}, false
}

func (c *LRU) Set(k string, v zone.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := time.Now().Add(c.ttl)
	if e, ok := c.dict[k]; ok {
		e.Value = kv{k: k, v: v, exp: exp}
		c.lst.MoveToFront(e)
		return
	}
	c.dict[k] = c.lst.PushFront(kv{k: k, v: v, exp: exp})
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		delete(c.dict, back.Value.(kv).k)
		c.lst.Remove(back)
	}
}

func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}

// lookupKey：坐标按最短可还原精度格式化，不做取整，命中缓存与直接计算的结果完全一致
func lookupKey(version string, q zone.Query) string {
	return "zm:lookup:" + version + ":" +
		strconv.FormatFloat(q.Point.Lat(), 'g', -1, 64) + "," +
		strconv.FormatFloat(q.Point.Lon(), 'g', -1, 64) + ":" +
		strconv.Quote(q.ExpectedSquare) + strconv.Quote(q.ExpectedSign)
}

// resultCache：两级查询缓存，先查进程内 LRU，再查 Redis（可选）
type resultCache struct {
	lru *LRU
	rc  *redis.Client
	ttl time.Duration
}

func (c *resultCache) get(ctx context.Context, key string) (zone.Result, bool) {
	if res, ok := c.lru.Get(key); ok {
		metrics.CacheHitsTotal.Inc()
		return res, true
	}
	if c.rc != nil {
		s, err := c.rc.Get(ctx, key).Result()
		switch {
		case err == nil:
			var res zone.Result
			if json.Unmarshal([]byte(s), &res) == nil {
				c.lru.Set(key, res)
				metrics.CacheHitsTotal.Inc()
				logger.L().Debug("lookup_cache_hit", "tier", "redis", "key", key)
				return res, true
			}
		case !errors.Is(err, redis.Nil):
			logger.L().Warn("redis_get_error", "err", err)
		}
	}
	metrics.CacheMissesTotal.Inc()
	return zone.Result{}, false
}

func (c *resultCache) set(ctx context.Context, key string, res zone.Result) {
	c.lru.Set(key, res)
	if c.rc == nil {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.rc.Set(ctx, key, b, c.ttl).Err(); err != nil {
		logger.L().Warn("redis_set_error", "err", err)
	}
}
