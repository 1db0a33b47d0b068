// Package redisrepo is the redis-backed UserRepository adapter. One
// hash-free JSON record per account plus an identity index key; Update
// is a WATCH/MULTI compare-and-set on Account.Version.
package redisrepo

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	authcore "github.com/raymandgroup/authcore"
)

const defaultPrefix = "acct"

// Repository defines a public type used by authcore APIs.
//
// Repository instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Repository struct {
	client *redis.Client
	prefix string
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New(client *redis.Client, prefix string) *Repository {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Repository{client: client, prefix: prefix}
}

func (r *Repository) idKey(id string) string {
	return r.prefix + ":id:" + id
}

func (r *Repository) identityKey(identity string) string {
	return r.prefix + ":idn:" + identity
}

// Create describes the create operation and its observable behavior.
//
// Create stores a fresh account at Version 1. The identity index is the
// uniqueness arbiter: a concurrent Create for the same identity loses
// the transaction and reports ErrAccountExists.
func (r *Repository) Create(ctx context.Context, account *authcore.Account) error {
	idnKey := r.identityKey(account.Identity)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, idnKey).Result()
		if err != nil {
			return err
		}
		if exists == 1 {
			return authcore.ErrAccountExists
		}

		account.Version = 1
		payload, err := json.Marshal(account)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, idnKey, account.ID, 0)
			pipe.Set(ctx, r.idKey(account.ID), payload, 0)
			return nil
		})
		return err
	}, idnKey)

	if errors.Is(err, redis.TxFailedErr) {
		return authcore.ErrAccountExists
	}
	return err
}

// FindByIdentity describes the findbyidentity operation and its observable behavior.
//
// FindByIdentity may return an error when input validation, dependency calls, or security checks fail.
// FindByIdentity does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Repository) FindByIdentity(ctx context.Context, identity string) (*authcore.Account, error) {
	id, err := r.client.Get(ctx, r.identityKey(identity)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authcore.ErrUserNotFound
		}
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// FindByID describes the findbyid operation and its observable behavior.
//
// FindByID may return an error when input validation, dependency calls, or security checks fail.
// FindByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Repository) FindByID(ctx context.Context, id string) (*authcore.Account, error) {
	payload, err := r.client.Get(ctx, r.idKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authcore.ErrUserNotFound
		}
		return nil, err
	}

	var account authcore.Account
	if err := json.Unmarshal(payload, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// Update describes the update operation and its observable behavior.
//
// Update is the per-account compare-and-set: the stored Version must
// match the caller's snapshot or the write is rejected with
// ErrVersionConflict. A WATCH race on the record key maps to the same
// conflict so the engine's retry loop handles both uniformly.
func (r *Repository) Update(ctx context.Context, account *authcore.Account) error {
	key := r.idKey(account.ID)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return authcore.ErrUserNotFound
			}
			return err
		}

		var stored authcore.Account
		if err := json.Unmarshal(payload, &stored); err != nil {
			return err
		}
		if stored.Version != account.Version {
			return authcore.ErrVersionConflict
		}

		account.Version++
		next, err := json.Marshal(account)
		if err != nil {
			account.Version--
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		if err != nil {
			account.Version--
		}
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return authcore.ErrVersionConflict
	}
	return err
}
