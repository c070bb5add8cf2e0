package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/tagex/pkg/model"
)

// Backend kinds accepted by New
const (
	KindNone    = "none"
	KindMemory  = "memory"
	KindDisk    = "disk"
	KindLayered = "layered"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives the cache key of text tokenized by the recognizers identified
// by fingerprint
func Key(fingerprint, text string) string {
	h := sha256.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return "tagex:v1:" + hex.EncodeToString(h.Sum(nil))
}

// New builds a cache backend by kind. KindNone and "" return nil.
func New(kind, dir string, ttl time.Duration) (Cache, error) {
	switch kind {
	case "", KindNone:
		return nil, nil
	case KindMemory:
		return NewMemoryCache(ttl, 10*time.Minute), nil
	case KindDisk:
		if dir == "" {
			return nil, fmt.Errorf("disk cache needs a directory")
		}
		return NewDiskCache(dir, ttl), nil
	case KindLayered:
		if dir == "" {
			return nil, fmt.Errorf("layered cache needs a directory")
		}
		return NewLayeredCache(NewMemoryCache(ttl, 10*time.Minute), NewDiskCache(dir, ttl), ttl), nil
	default:
		return nil, fmt.Errorf("unknown cache kind %q", kind)
	}
}

// TokenStore keeps token sequences JSON-encoded in a Cache
type TokenStore struct {
	cache Cache
	ttl   time.Duration
}

// NewTokenStore wraps c. A nil c stores nothing.
func NewTokenStore(c Cache, ttl time.Duration) *TokenStore {
	return &TokenStore{cache: c, ttl: ttl}
}

// Load returns the tokens stored under key. Undecodable entries are dropped.
func (s *TokenStore) Load(key string) ([]model.Token, bool) {
	if s == nil || s.cache == nil {
		return nil, false
	}
	data, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	var tokens []model.Token
	if err := json.Unmarshal(data, &tokens); err != nil {
		_ = s.cache.Delete(key)
		return nil, false
	}
	return tokens, true
}

// Store saves tokens under key
func (s *TokenStore) Store(key string, tokens []model.Token) error {
	if s == nil || s.cache == nil {
		return nil
	}
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	return s.cache.Set(key, data, s.ttl)
}
