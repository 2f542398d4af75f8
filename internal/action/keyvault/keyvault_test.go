package keyvault

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/repo"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/store/memstore"
)

func newVault(t *testing.T) (*Vault, *memstore.Store) {
	t.Helper()
	c, err := NewCipher("unit-test-secret")
	require.NoError(t, err)
	s := memstore.New()
	return New(s, c, repo.NewMemoryCache(0)), s
}

func TestCipherRoundTrip(t *testing.T) {
	t.Parallel()
	c, err := NewCipher("unit-test-secret")
	require.NoError(t, err)

	tok, err := c.Encrypt("s3cr3t")
	require.NoError(t, err)
	assert.NotContains(t, tok, "s3cr3t")

	plain, err := c.Decrypt(tok)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", plain)

	_, err = c.Decrypt("garbage")
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestCipherRequiresSecret(t *testing.T) {
	t.Parallel()
	_, err := NewCipher("")
	require.Error(t, err)
}

func TestVaultGetStoresCiphertext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v, s := newVault(t)
	require.NoError(t, v.Put(ctx, "bot1", "API_KEY", "abcdef123"))

	var raw model.KeyVaultEntry
	require.NoError(t, s.FindOne(ctx, model.CollectionKeyVault, map[string]any{"bot": "bot1", "key": "API_KEY"}, &raw))
	assert.NotEqual(t, "abcdef123", raw.Value)

	val, ok, err := v.Get(ctx, "bot1", "API_KEY", true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abcdef123", val)
}

func TestVaultMissingKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v, _ := newVault(t)

	_, ok, err := v.Get(ctx, "bot1", "NOPE", false)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = v.Get(ctx, "bot1", "NOPE", true)
	require.Error(t, err)
	assert.Equal(t, errx.KindMissingSecret, errx.KindOf(err))
}

func TestVaultDumpIsPerBot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v, _ := newVault(t)
	require.NoError(t, v.Put(ctx, "bot1", "A", "1"))
	require.NoError(t, v.Put(ctx, "bot1", "B", "2"))
	require.NoError(t, v.Put(ctx, "bot2", "C", "3"))

	got, err := v.Dump(ctx, "bot1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, got)
}

func TestMask(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"a", "*"},
		{"ab", "**"},
		{"abc", "*bc"},
		{"supersecret", "*********et"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := Mask(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, len(tc.in), len(got))
			if len(tc.in) > 2 {
				assert.False(t, strings.ContainsAny(got[:len(got)-2], tc.in[:len(tc.in)-2]))
			}
		})
	}
}

type brokenCache struct {
	*repo.MemoryCache
}

func (brokenCache) Delete(context.Context, string) error {
	return errors.New("cache unavailable")
}

func TestVaultPutReportsCacheInvalidationFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, err := NewCipher("unit-test-secret")
	require.NoError(t, err)
	s := memstore.New()
	v := New(s, c, brokenCache{repo.NewMemoryCache(0)})

	err = v.Put(ctx, "bot1", "API_KEY", "rotated")
	require.EqualError(t, err, "cache unavailable")

	var raw model.KeyVaultEntry
	require.NoError(t, s.FindOne(ctx, model.CollectionKeyVault, map[string]any{"bot": "bot1", "key": "API_KEY"}, &raw))
	plain, err := c.Decrypt(raw.Value)
	require.NoError(t, err)
	assert.Equal(t, "rotated", plain)
}
