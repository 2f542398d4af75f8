// Package keyvault stores per-bot secrets encrypted at rest and decrypts
// them on read.
package keyvault

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/repo"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/store"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

// Vault reads and writes KeyVaultEntry documents. Only ciphertext is cached.
type Vault struct {
	store  store.Store
	cipher *Cipher
	cache  repo.Cache
}

func New(s store.Store, c *Cipher, cache repo.Cache) *Vault {
	if cache == nil {
		cache = repo.NewMemoryCache(0)
	}
	return &Vault{store: s, cipher: c, cache: cache}
}

// Cipher returns the vault's cipher, shared with encrypted literal parameters.
func (v *Vault) Cipher() *Cipher {
	return v.cipher
}

// Get returns the decrypted value of key. When the key is absent it fails
// with MissingSecret if raiseOnMissing, otherwise it returns ok=false.
func (v *Vault) Get(ctx context.Context, bot, key string, raiseOnMissing bool) (value string, ok bool, err error) {
	entry, err := v.entry(ctx, bot, key)
	if err != nil {
		if errors.Is(err, errx.ErrNotFound) {
			if raiseOnMissing {
				return "", false, errx.E(errx.KindMissingSecret, fmt.Sprintf("key %q does not exist in the key vault", key), err)
			}
			return "", false, nil
		}
		return "", false, err
	}
	plain, err := v.cipher.Decrypt(entry.Value)
	if err != nil {
		return "", false, errx.E(errx.KindMissingSecret, fmt.Sprintf("key %q could not be decrypted", key), err)
	}
	return plain, true, nil
}

// Dump returns every decrypted secret of bot. Entries that fail to decrypt are skipped.
func (v *Vault) Dump(ctx context.Context, bot string) (map[string]string, error) {
	var entries []model.KeyVaultEntry
	if err := v.store.Find(ctx, model.CollectionKeyVault, bson.M{"bot": bot}, store.FindOptions{}, &entries); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		plain, err := v.cipher.Decrypt(e.Value)
		if err != nil {
			logx.Warn().Str("bot", bot).Str("key", e.Key).Msg("skipping undecryptable key vault entry")
			continue
		}
		out[e.Key] = plain
	}
	return out, nil
}

// Put encrypts and upserts a secret.
func (v *Vault) Put(ctx context.Context, bot, key, value string) error {
	enc, err := v.cipher.Encrypt(value)
	if err != nil {
		return err
	}
	if err := v.store.Update(ctx, model.CollectionKeyVault, bson.M{"bot": bot, "key": key}, bson.M{"value": enc}, true); err != nil {
		return err
	}
	// A stale cache entry would keep serving the old secret until expiry.
	if err := v.cache.Delete(ctx, cacheKey(bot, key)); err != nil {
		logx.Warn().Err(err).Str("bot", bot).Str("key", key).Msg("key vault cache invalidation failed")
		return err
	}
	return nil
}

// Encrypt seals a value with the vault's cipher for fields stored outside
// the key vault collection.
func (v *Vault) Encrypt(plain string) (string, error) {
	return v.cipher.Encrypt(plain)
}

// Decrypt opens a value sealed by Encrypt.
func (v *Vault) Decrypt(token string) (string, error) {
	return v.cipher.Decrypt(token)
}

// Delete removes a secret.
func (v *Vault) Delete(ctx context.Context, bot, key string) error {
	if _, err := v.store.Delete(ctx, model.CollectionKeyVault, bson.M{"bot": bot, "key": key}); err != nil {
		return err
	}
	return v.cache.Delete(ctx, cacheKey(bot, key))
}

func (v *Vault) entry(ctx context.Context, bot, key string) (*model.KeyVaultEntry, error) {
	ck := cacheKey(bot, key)
	var e model.KeyVaultEntry
	if hit, err := v.cache.Get(ctx, ck, &e); err == nil && hit {
		return &e, nil
	}
	if err := v.store.FindOne(ctx, model.CollectionKeyVault, bson.M{"bot": bot, "key": key}, &e); err != nil {
		return nil, err
	}
	if err := v.cache.Set(ctx, ck, &e); err != nil {
		logx.Warn().Err(err).Str("bot", bot).Str("key", key).Msg("key vault cache write failed")
	}
	return &e, nil
}

func cacheKey(bot, key string) string {
	return "key_vault:" + bot + ":" + key
}

// Mask hides all but the last two characters of a secret.
func Mask(value string) string {
	r := []rune(value)
	if len(r) <= 2 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-2) + string(r[len(r)-2:])
}
