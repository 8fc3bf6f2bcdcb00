package crypto

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"filippo.io/age"
)

// Encryptor seals values with an age X25519 identity. Queued mail payloads
// pass through it so activation links are never stored in Redis in clear.
type Encryptor struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
}

// NewEncryptor parses an age identity ("AGE-SECRET-KEY-1..."). An empty key
// generates a throwaway identity, which only works when the API and worker
// share a process, so it is meant for development and tests.
func NewEncryptor(identityKey string) (*Encryptor, error) {
	var (
		identity *age.X25519Identity
		err      error
	)

	if identityKey == "" {
		identity, err = age.GenerateX25519Identity()
		if err != nil {
			return nil, fmt.Errorf("generating identity: %w", err)
		}
	} else {
		identity, err = age.ParseX25519Identity(identityKey)
		if err != nil {
			return nil, fmt.Errorf("parsing identity: %w", err)
		}
	}

	return &Encryptor{
		identity:  identity,
		recipient: identity.Recipient(),
	}, nil
}

// GenerateKey returns a new identity and its public recipient.
func GenerateKey() (identityKey, publicKey string, err error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", fmt.Errorf("generating identity: %w", err)
	}
	return identity.String(), identity.Recipient().String(), nil
}

func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := age.Encrypt(&buf, e.recipient)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing encryptor: %w", err)
	}

	return buf.Bytes(), nil
}

func (e *Encryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(ciphertext), e.identity)
	if err != nil {
		return nil, fmt.Errorf("creating decryptor: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading plaintext: %w", err)
	}
	return plaintext, nil
}

// EncryptString returns base64 encoded ciphertext.
func (e *Encryptor) EncryptString(plaintext string) (string, error) {
	ciphertext, err := e.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (e *Encryptor) DecryptString(ciphertext string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decoding base64: %w", err)
	}

	plaintext, err := e.Decrypt(decoded)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (e *Encryptor) PublicKey() string {
	return e.recipient.String()
}
