// Package tokenstore provides the remote access token to the sync engine.
//
// The token is kept in the settings table, sealed with AES-256-GCM under a key
// derived from TOKEN_ENCRYPTION_KEY. An empty token is the logged-out state,
// not an error.
package tokenstore

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mrlokans/readinglist/internal/crypto"
	"github.com/mrlokans/readinglist/internal/database/settings"
	"github.com/mrlokans/readinglist/internal/entities"
)

const (
	// EnvEncryptionKey is the environment variable for the encryption key
	EnvEncryptionKey = "TOKEN_ENCRYPTION_KEY"

	// DefaultKeyFileName is the default name for the key file
	DefaultKeyFileName = ".readinglist-token-key"
)

var ErrNoToken = errors.New("no access token stored")

// Provider returns the current access token, or "" when logged out.
type Provider interface {
	CurrentToken() string
}

// Static serves a fixed token, typically from ACCESS_TOKEN.
type Static string

func (s Static) CurrentToken() string {
	return string(s)
}

// Config holds configuration for the token store
type Config struct {
	// EncryptionKey is a secret of any length. If empty, the environment and
	// then the key file are consulted.
	EncryptionKey string

	// KeyFilePath is the path to the encryption key file
	// If empty, defaults to ~/.readinglist-token-key
	KeyFilePath string
}

// Store keeps the token sealed in the settings table and caches the
// plaintext after the first read.
type Store struct {
	repo   *settings.Repository
	sealer *crypto.Sealer

	mu     sync.RWMutex
	cached *string
}

func New(repo *settings.Repository, cfg Config) (*Store, error) {
	secret, err := resolveEncryptionKey(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve encryption key: %w", err)
	}

	sealer, err := crypto.NewSealerFromSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create sealer: %w", err)
	}

	return &Store{repo: repo, sealer: sealer}, nil
}

// resolveEncryptionKey determines the encryption key from various sources
func resolveEncryptionKey(cfg Config) (string, error) {
	if cfg.EncryptionKey != "" {
		return cfg.EncryptionKey, nil
	}

	if envKey := os.Getenv(EnvEncryptionKey); envKey != "" {
		return envKey, nil
	}

	keyFilePath := KeyFilePath(cfg.KeyFilePath)
	if data, err := os.ReadFile(keyFilePath); err == nil {
		return strings.TrimSpace(string(data)), nil
	}

	newKey, err := crypto.GenerateSecret()
	if err != nil {
		return "", fmt.Errorf("failed to generate encryption key: %w", err)
	}
	if err := os.WriteFile(keyFilePath, []byte(newKey), 0600); err != nil {
		return "", fmt.Errorf("failed to save encryption key to %s: %w", keyFilePath, err)
	}

	log.Printf("Generated new token encryption key at %s", keyFilePath)
	return newKey, nil
}

// Save seals and stores token, replacing any previous one.
func (s *Store) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNoToken
	}

	sealed, err := s.sealer.Seal(token, entities.SettingKeyAccessToken)
	if err != nil {
		return fmt.Errorf("failed to seal access token: %w", err)
	}
	if err := s.repo.SetSetting(entities.SettingKeyAccessToken, sealed); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}

	s.mu.Lock()
	s.cached = &token
	s.mu.Unlock()
	return nil
}

// Token returns the stored token or ErrNoToken.
func (s *Store) Token() (string, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		if *cached == "" {
			return "", ErrNoToken
		}
		return *cached, nil
	}

	setting, err := s.repo.GetSetting(entities.SettingKeyAccessToken)
	if errors.Is(err, settings.ErrSettingNotFound) {
		s.setCached("")
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to load access token: %w", err)
	}

	token, err := s.sealer.Open(setting.Value, entities.SettingKeyAccessToken)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt access token: %w", err)
	}
	s.setCached(token)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// CurrentToken implements Provider. A token that cannot be decrypted is
// treated as absent.
func (s *Store) CurrentToken() string {
	token, err := s.Token()
	if err != nil && !errors.Is(err, ErrNoToken) {
		log.Printf("[SYNC] Access token unavailable: %v", err)
	}
	return token
}

// Clear removes the stored token.
func (s *Store) Clear() error {
	if err := s.repo.DeleteSetting(entities.SettingKeyAccessToken); err != nil {
		return fmt.Errorf("failed to delete access token: %w", err)
	}
	s.setCached("")
	return nil
}

func (s *Store) setCached(token string) {
	s.mu.Lock()
	s.cached = &token
	s.mu.Unlock()
}

// KeyFilePath returns the path to the key file being used
func KeyFilePath(customPath string) string {
	if customPath != "" {
		return customPath
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DefaultKeyFileName
	}
	return filepath.Join(homeDir, DefaultKeyFileName)
}

// Resolve prefers a static token when one is configured.
func Resolve(static string, stored *Store) Provider {
	if static != "" {
		return Static(static)
	}
	return stored
}
