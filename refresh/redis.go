package refresh

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport-level failures talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// registerScript inserts the entry only when the pair key is free and
// maintains the per-user index set.
const registerScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1],
  "username", ARGV[1],
  "secret", ARGV[2],
  "access", ARGV[3],
  "issued", ARGV[4],
  "expires", ARGV[5])
redis.call("PEXPIRE", KEYS[1], ARGV[6])
redis.call("SADD", KEYS[2], ARGV[7])
return 1
`

// rotateScript is the per-key compare-and-swap. Status: 0 not found,
// 1 secret mismatch, 2 rotated (username follows).
const rotateScript = `
local secret = redis.call("HGET", KEYS[1], "secret")
if not secret then
  return {0}
end
if secret ~= ARGV[1] then
  return {1}
end
redis.call("HSET", KEYS[1],
  "secret", ARGV[2],
  "access", ARGV[3],
  "issued", ARGV[4],
  "expires", ARGV[5])
redis.call("PEXPIRE", KEYS[1], ARGV[6])
return {2, redis.call("HGET", KEYS[1], "username")}
`

// deleteScript drops the entry and its user-index membership.
const deleteScript = `
local username = redis.call("HGET", KEYS[1], "username")
if not username then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[1] .. "user:" .. username, ARGV[2])
return 1
`

// deleteAllScript clears every pair key indexed for the user.
const deleteAllScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
local dropped = 0
for _, id in ipairs(ids) do
  dropped = dropped + redis.call("DEL", ARGV[1] .. "pair:" .. id)
end
redis.call("DEL", KEYS[1])
return dropped
`

var (
	registerLua  = redis.NewScript(registerScript)
	rotateLua    = redis.NewScript(rotateScript)
	deleteLua    = redis.NewScript(deleteScript)
	deleteAllLua = redis.NewScript(deleteAllScript)
)

// RedisStore keeps the registry in Redis so refresh sessions survive process
// restarts and can be shared across replicas. Atomicity of rotation comes
// from server-side scripts; keys expire with the refresh TTL. Single-instance
// Redis is assumed (scripts touch derived keys).
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wires the store over an existing client. prefix namespaces
// all keys; "authcore:" is used when empty.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "authcore:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) pairKey(pairID string) string {
	return s.prefix + "pair:" + pairID
}

func (s *RedisStore) userKey(username string) string {
	return s.prefix + "user:" + username
}

// Register implements [Store].
func (s *RedisStore) Register(ctx context.Context, entry Entry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("%w: entry already expired", ErrTokenExists)
	}

	res, err := registerLua.Run(ctx, s.client,
		[]string{s.pairKey(entry.PairID), s.userKey(entry.Username)},
		entry.Username,
		hex.EncodeToString(entry.SecretHash[:]),
		entry.AccessTokenID,
		entry.IssuedAt.Unix(),
		entry.ExpiresAt.Unix(),
		ttl.Milliseconds(),
		entry.PairID,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if res == 0 {
		return ErrTokenExists
	}
	return nil
}

// Get implements [Store].
func (s *RedisStore) Get(ctx context.Context, pairID string) (Entry, error) {
	fields, err := s.client.HGetAll(ctx, s.pairKey(pairID)).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return Entry{}, ErrNotFound
	}
	return entryFromFields(pairID, fields)
}

// Rotate implements [Store].
func (s *RedisStore) Rotate(ctx context.Context, pairID string, providedHash, nextHash [32]byte, nextAccessTokenID string, nextExpiry time.Time) (Entry, error) {
	now := time.Now()
	ttl := time.Until(nextExpiry)
	if ttl <= 0 {
		return Entry{}, ErrNotFound
	}

	res, err := rotateLua.Run(ctx, s.client,
		[]string{s.pairKey(pairID)},
		hex.EncodeToString(providedHash[:]),
		hex.EncodeToString(nextHash[:]),
		nextAccessTokenID,
		now.Unix(),
		nextExpiry.Unix(),
		ttl.Milliseconds(),
	).Slice()
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(res) == 0 {
		return Entry{}, fmt.Errorf("%w: empty rotate reply", ErrRedisUnavailable)
	}

	status, ok := res[0].(int64)
	if !ok {
		return Entry{}, fmt.Errorf("%w: malformed rotate reply", ErrRedisUnavailable)
	}
	switch status {
	case 0:
		return Entry{}, ErrNotFound
	case 1:
		return Entry{}, ErrSecretMismatch
	}

	username := ""
	if len(res) > 1 {
		username, _ = res[1].(string)
	}

	return Entry{
		PairID:        pairID,
		Username:      username,
		SecretHash:    nextHash,
		AccessTokenID: nextAccessTokenID,
		IssuedAt:      now,
		ExpiresAt:     nextExpiry,
	}, nil
}

// Delete implements [Store]. Idempotent.
func (s *RedisStore) Delete(ctx context.Context, pairID string) error {
	err := deleteLua.Run(ctx, s.client,
		[]string{s.pairKey(pairID)},
		s.prefix,
		pairID,
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteAllForUser implements [Store].
func (s *RedisStore) DeleteAllForUser(ctx context.Context, username string) (int, error) {
	dropped, err := deleteAllLua.Run(ctx, s.client,
		[]string{s.userKey(username)},
		s.prefix,
	).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(dropped), nil
}

// Close implements [Store]. The client is owned by the caller and is left
// open.
func (s *RedisStore) Close() error {
	return nil
}

func entryFromFields(pairID string, fields map[string]string) (Entry, error) {
	secretHex, ok := fields["secret"]
	if !ok {
		return Entry{}, ErrNotFound
	}
	raw, err := hex.DecodeString(secretHex)
	if err != nil || len(raw) != 32 {
		return Entry{}, fmt.Errorf("%w: corrupt secret hash", ErrRedisUnavailable)
	}

	var hash [32]byte
	copy(hash[:], raw)

	issued, _ := strconv.ParseInt(fields["issued"], 10, 64)
	expires, _ := strconv.ParseInt(fields["expires"], 10, 64)

	return Entry{
		PairID:        pairID,
		Username:      fields["username"],
		SecretHash:    hash,
		AccessTokenID: fields["access"],
		IssuedAt:      time.Unix(issued, 0),
		ExpiresAt:     time.Unix(expires, 0),
	}, nil
}
