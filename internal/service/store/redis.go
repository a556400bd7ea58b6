package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"orderrecon/internal/model"
)

// RedisOptions Redis 缓存选项
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration // 0 表示不过期
}

// RedisStore 基于 Redis 的报告缓存，适用于多实例部署
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	newID  func() string
}

// NewRedisStore 创建 Redis 缓存
func NewRedisStore(opts RedisOptions) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return newRedisStoreWithClient(client, opts.KeyPrefix, opts.TTL)
}

func newRedisStoreWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "orderrecon:report:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl, newID: NewID}
}

// Ping 检查连接
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close 关闭连接
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Put 写入报告并返回新 ID
func (s *RedisStore) Put(ctx context.Context, rows []model.ComparisonRow, summary model.Summary) (string, error) {
	report := &model.Report{
		ID:        s.newID(),
		Rows:      rows,
		Summary:   summary,
		CreatedAt: time.Now(),
	}
	data, err := encodeReport(report)
	if err != nil {
		return "", err
	}
	// SetNX: an id is written exactly once.
	ok, err := s.client.SetNX(ctx, s.key(report.ID), data, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("redis set report: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("redis set report: id collision %s", report.ID)
	}
	return report.ID, nil
}

// Get 读取报告
func (s *RedisStore) Get(ctx context.Context, id string) (*model.Report, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get report: %w", err)
	}
	return decodeReport(data)
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func encodeReport(r *model.Report) ([]byte, error) {
	if r.Rows == nil {
		r.Rows = []model.ComparisonRow{}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return data, nil
}

func decodeReport(data []byte) (*model.Report, error) {
	var r model.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if r.Rows == nil {
		r.Rows = []model.ComparisonRow{}
	}
	return &r, nil
}
