package oauth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StateCookieName  = "oauth_state"
	defaultStateTTL  = 10 * time.Minute
	redisStatePrefix = "oauth_state:"
)

// CookieStateStore keeps the state in a short-lived HTTP-only cookie.
type CookieStateStore struct {
	Secure bool
	TTL    time.Duration
}

func (s CookieStateStore) Save(w http.ResponseWriter, _ *http.Request, state string) error {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(s.ttl() / time.Second),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s CookieStateStore) Consume(w http.ResponseWriter, r *http.Request, state string) error {
	c, err := r.Cookie(StateCookieName)

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	if err != nil || state == "" {
		return ErrStateMismatch
	}
	if subtle.ConstantTimeCompare([]byte(c.Value), []byte(state)) != 1 {
		return ErrStateMismatch
	}
	return nil
}

func (s CookieStateStore) ttl() time.Duration {
	if s.TTL <= 0 {
		return defaultStateTTL
	}
	return s.TTL
}

// RedisStateStore keeps issued states in Redis. Each state can be consumed once.
type RedisStateStore struct {
	rdb *redis.Client
	ttl time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewRedisStateStore(cfg RedisConfig) *RedisStateStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &RedisStateStore{rdb: rdb, ttl: ttl}
}

// Ping verifies the Redis connection.
func (s *RedisStateStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStateStore) Save(_ http.ResponseWriter, r *http.Request, state string) error {
	ok, err := s.rdb.SetNX(r.Context(), redisStatePrefix+state, "1", s.ttl).Result()
	if err != nil {
		return fmt.Errorf("store state in redis: %w", err)
	}
	if !ok {
		return errors.New("state collision")
	}
	return nil
}

func (s *RedisStateStore) Consume(_ http.ResponseWriter, r *http.Request, state string) error {
	if state == "" {
		return ErrStateMismatch
	}
	_, err := s.rdb.GetDel(r.Context(), redisStatePrefix+state).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrStateMismatch
		}
		return fmt.Errorf("redeem state from redis: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Close() error {
	return s.rdb.Close()
}
