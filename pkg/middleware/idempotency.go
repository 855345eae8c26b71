package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-ticketing/pkg/response"
	"github.com/redis/go-redis/v9"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency key
	IdempotencyKeyHeader = "X-Idempotency-Key"
	// IdempotentReplayHeader marks a response served from a stored record
	IdempotentReplayHeader = "X-Idempotent-Replay"
	// ContextKeyIdempotencyKey is the context key for idempotency key
	ContextKeyIdempotencyKey = "idempotency_key"
	// DefaultIdempotencyTTL keeps completed purchase responses for client retries
	DefaultIdempotencyTTL = 24 * time.Hour
	// IdempotencyKeyPrefix namespaces records in Redis
	IdempotencyKeyPrefix = "idempotency:"
)

// IdempotencyStatus represents the status of an idempotency record
type IdempotencyStatus string

const (
	StatusProcessing IdempotencyStatus = "processing"
	StatusCompleted  IdempotencyStatus = "completed"
)

// IdempotencyRecord stores the state of an idempotent request
type IdempotencyRecord struct {
	Key          string            `json:"key"`
	Status       IdempotencyStatus `json:"status"`
	RequestHash  string            `json:"request_hash"`
	ResponseCode int               `json:"response_code"`
	ResponseBody string            `json:"response_body"`
	CreatedAt    time.Time         `json:"created_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}

// RedisClient is the subset of go-redis used for idempotency records
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	Redis RedisClient
	// TTL of completed records
	TTL time.Duration
	// ProcessingTTL bounds how long a crashed request blocks its key
	ProcessingTTL time.Duration
	// KeyExtractor reads the client key, from IdempotencyKeyHeader by default
	KeyExtractor func(*gin.Context) string
	// SkipPaths bypass the check; a trailing * matches a prefix
	SkipPaths []string
}

// DefaultIdempotencyConfig returns default configuration
func DefaultIdempotencyConfig(redis RedisClient) *IdempotencyConfig {
	return &IdempotencyConfig{
		Redis:         redis,
		TTL:           DefaultIdempotencyTTL,
		ProcessingTTL: 60 * time.Second,
		KeyExtractor:  func(c *gin.Context) string { return strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader)) },
	}
}

// idempotencyStore reads and writes records. Keys are scoped per caller so
// two buyers picking the same client key never see each other's purchase.
type idempotencyStore struct {
	redis RedisClient
}

func (s idempotencyStore) redisKey(scope, key string) string {
	return IdempotencyKeyPrefix + scope + ":" + key
}

func (s idempotencyStore) get(ctx context.Context, key string) (*IdempotencyRecord, error) {
	raw, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	var record IdempotencyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// claim stores a processing record unless one exists
func (s idempotencyStore) claim(ctx context.Context, key string, record *IdempotencyRecord, ttl time.Duration) bool {
	data, err := json.Marshal(record)
	if err != nil {
		return false
	}
	ok, err := s.redis.SetNX(ctx, key, string(data), ttl).Result()
	return err == nil && ok
}

func (s idempotencyStore) complete(ctx context.Context, key string, record *IdempotencyRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, string(data), ttl).Err()
}

func (s idempotencyStore) release(ctx context.Context, key string) {
	_ = s.redis.Del(ctx, key).Err()
}

// IdempotencyMiddleware replays the stored response of a write request that
// repeats a key, so a retried purchase never opens a second checkout. Redis
// failures let the request through.
func IdempotencyMiddleware(config *IdempotencyConfig) gin.HandlerFunc {
	if config.ProcessingTTL == 0 {
		config.ProcessingTTL = 60 * time.Second
	}
	if config.TTL == 0 {
		config.TTL = DefaultIdempotencyTTL
	}
	if config.KeyExtractor == nil {
		config.KeyExtractor = DefaultIdempotencyConfig(nil).KeyExtractor
	}
	store := idempotencyStore{redis: config.Redis}

	return func(c *gin.Context) {
		if isReadMethod(c.Request.Method) || skipped(c.Request.URL.Path, config.SkipPaths) {
			c.Next()
			return
		}

		clientKey := config.KeyExtractor(c)
		if clientKey == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, response.ErrorBody("MISSING_IDEMPOTENCY_KEY", IdempotencyKeyHeader+" header is required"))
			return
		}
		c.Set(ContextKeyIdempotencyKey, clientKey)

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		scope, ok := GetUserID(c)
		if !ok {
			scope = "anonymous"
		}
		key := store.redisKey(scope, clientKey)
		hash := requestHash(c.Request.Method, c.Request.URL.Path, body)
		ctx := c.Request.Context()

		existing, err := store.get(ctx, key)
		switch {
		case err != nil && !errors.Is(err, redis.Nil):
			c.Next()
			return
		case existing != nil:
			replay(c, existing, hash)
			return
		}

		record := &IdempotencyRecord{
			Key:         clientKey,
			Status:      StatusProcessing,
			RequestHash: hash,
			CreatedAt:   time.Now().UTC(),
		}
		if !store.claim(ctx, key, record, config.ProcessingTTL) {
			// Lost the race to a concurrent request with the same key
			if existing, _ = store.get(ctx, key); existing != nil {
				replay(c, existing, hash)
				return
			}
		}

		rw := &idempotencyResponseWriter{ResponseWriter: c.Writer, status: http.StatusOK}
		c.Writer = rw
		c.Next()

		// Server errors are not cached so the client can retry with the same key
		if rw.status >= http.StatusInternalServerError {
			store.release(ctx, key)
			return
		}

		now := time.Now().UTC()
		record.Status = StatusCompleted
		record.ResponseCode = rw.status
		record.ResponseBody = rw.body.String()
		record.CompletedAt = &now
		_ = store.complete(ctx, key, record, config.TTL)
	}
}

// replay answers from an existing record
func replay(c *gin.Context, record *IdempotencyRecord, hash string) {
	switch {
	case record.RequestHash != hash:
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, response.ErrorBody("IDEMPOTENCY_KEY_REUSED", "idempotency key already used with a different request"))
	case record.Status == StatusProcessing:
		c.AbortWithStatusJSON(http.StatusConflict, response.ErrorBody("REQUEST_IN_PROGRESS", "a request with this idempotency key is still being processed"))
	default:
		c.Header(IdempotentReplayHeader, "true")
		c.Data(record.ResponseCode, "application/json; charset=utf-8", []byte(record.ResponseBody))
		c.Abort()
	}
}

// GetIdempotencyKey extracts idempotency key from gin context
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	key, exists := c.Get(ContextKeyIdempotencyKey)
	if !exists {
		return "", false
	}
	k, ok := key.(string)
	return k, ok
}

// idempotencyResponseWriter captures response for caching
type idempotencyResponseWriter struct {
	gin.ResponseWriter
	body   bytes.Buffer
	status int
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *idempotencyResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func isReadMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

func skipped(path string, patterns []string) bool {
	for _, p := range patterns {
		if matchPath(path, p) {
			return true
		}
	}
	return false
}

func matchPath(path, pattern string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(path, strings.TrimSuffix(pattern, "*"))
	}
	return path == pattern
}

func requestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
