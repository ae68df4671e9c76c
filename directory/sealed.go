package directory

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

const sealedPrefix = "sealed.v1."

var _ Directory = (*Sealed)(nil)

// Sealed encrypts tokens before they reach the wrapped backend and decrypts them on
// lookup. Values written before sealing was enabled are returned unchanged.
type Sealed struct {
	next Directory
	aead cipher.AEAD
}

// NewSealed wraps next with XChaCha20-Poly1305 using a 32 byte key.
func NewSealed(next Directory, key []byte) (*Sealed, error) {
	if next == nil {
		return nil, errors.New("[NewSealed] directory is required")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "[NewSealed] chacha20poly1305.NewX")
	}
	return &Sealed{next: next, aead: aead}, nil
}

func (s *Sealed) Exists(ctx context.Context, upstreamUserID string) (bool, error) {
	return s.next.Exists(ctx, upstreamUserID)
}

func (s *Sealed) CreateUser(ctx context.Context, upstreamUserID string, creds Credentials, sessionID string) (Result, error) {
	sealed, err := s.sealCredentials(creds)
	if err != nil {
		return Result{}, errors.Wrap(err, "[Sealed.CreateUser]")
	}
	return s.next.CreateUser(ctx, upstreamUserID, sealed, sessionID)
}

func (s *Sealed) UpdateCredentials(ctx context.Context, upstreamUserID string, creds Credentials) (Result, error) {
	sealed, err := s.sealCredentials(creds)
	if err != nil {
		return Result{}, errors.Wrap(err, "[Sealed.UpdateCredentials]")
	}
	return s.next.UpdateCredentials(ctx, upstreamUserID, sealed)
}

func (s *Sealed) ResolveSessionID(ctx context.Context, upstreamUserID string) (string, bool, error) {
	return s.next.ResolveSessionID(ctx, upstreamUserID)
}

func (s *Sealed) LookupBySessionID(ctx context.Context, sessionID string) (TokenRecord, error) {
	rec, err := s.next.LookupBySessionID(ctx, sessionID)
	if err != nil || !rec.OK() {
		return rec, err
	}
	plain, err := s.open(rec.AccessToken)
	if err != nil {
		return TokenRecord{}, errors.Wrap(err, "[Sealed.LookupBySessionID] open access token")
	}
	rec.AccessToken = plain
	return rec, nil
}

func (s *Sealed) sealCredentials(creds Credentials) (Credentials, error) {
	access, err := s.seal(creds.AccessToken)
	if err != nil {
		return Credentials{}, errors.Wrap(err, "seal access token")
	}
	refresh, err := s.seal(creds.RefreshToken)
	if err != nil {
		return Credentials{}, errors.Wrap(err, "seal refresh token")
	}
	creds.AccessToken = access
	creds.RefreshToken = refresh
	return creds, nil
}

func (s *Sealed) seal(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := s.aead.Seal(nonce, nonce, []byte(plain), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

func (s *Sealed) open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", err
	}
	if len(raw) < s.aead.NonceSize() {
		return "", errors.New("sealed value too short")
	}
	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
