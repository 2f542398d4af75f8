package keyvault

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
)

// ErrDecrypt is returned when a token fails verification.
var ErrDecrypt = errors.New("keyvault: unable to decrypt value")

// Cipher encrypts secrets at rest with a process-wide fernet key.
type Cipher struct {
	keys []*fernet.Key
}

// NewCipher accepts a base64 fernet key. Any other non-empty secret is
// stretched into a key with SHA-256.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, errors.New("keyvault: secret key is required")
	}
	k, err := fernet.DecodeKey(secret)
	if err != nil {
		sum := sha256.Sum256([]byte(secret))
		fk := fernet.Key(sum)
		k = &fk
	}
	return &Cipher{keys: []*fernet.Key{k}}, nil
}

func (c *Cipher) Encrypt(plain string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(plain), c.keys[0])
	if err != nil {
		return "", fmt.Errorf("keyvault: encrypt: %w", err)
	}
	return string(tok), nil
}

func (c *Cipher) Decrypt(token string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(token), 0, c.keys)
	if msg == nil {
		return "", ErrDecrypt
	}
	return string(msg), nil
}
