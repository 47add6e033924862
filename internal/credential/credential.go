package credential

import (
	"encoding/json"
	"fmt"

	"github.com/99designs/keyring"
)

const (
	serviceName = "hrms"
	sessionKey  = "session"
)

// Options configures the credential store.
type Options struct {
	// FileDir overrides the fallback file-backend directory. Useful for
	// tests and headless hosts without a system keychain.
	FileDir string
}

// Store reads and writes the persisted login session.
type Store struct {
	opts Options
}

// Open returns a credential store backed by the system keyring.
func Open(opts Options) *Store {
	return &Store{opts: opts}
}

func (s *Store) openRing() (keyring.Keyring, error) {
	fileDir := s.opts.FileDir
	if fileDir == "" {
		fileDir = "~/.config/hrms/credentials"
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("hrms-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// session is the persisted login blob. Older clients wrote the token under
// accessToken, newer ones under token; both are accepted on read.
type session struct {
	Token       string `json:"token"`
	AccessToken string `json:"accessToken"`
}

// AuthToken returns the stored authentication token, or "" when the store is
// absent, unreadable, or malformed. It never returns an error: a connection
// attempt without a token is preferred over failing to initialize.
func (s *Store) AuthToken() string {
	ring, err := s.openRing()
	if err != nil {
		return ""
	}

	item, err := ring.Get(sessionKey)
	if err != nil {
		return ""
	}

	var sess session
	if err := json.Unmarshal(item.Data, &sess); err != nil {
		return ""
	}

	if sess.Token != "" {
		return sess.Token
	}
	return sess.AccessToken
}

// SaveSession persists the authentication token for subsequent connections.
func (s *Store) SaveSession(token string) error {
	ring, err := s.openRing()
	if err != nil {
		return err
	}

	data, err := json.Marshal(session{Token: token})
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	if err := ring.Set(keyring.Item{Key: sessionKey, Data: data}); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

// ClearSession removes the persisted session. Missing sessions are not an
// error.
func (s *Store) ClearSession() error {
	ring, err := s.openRing()
	if err != nil {
		return err
	}

	if err := ring.Remove(sessionKey); err != nil && err != keyring.ErrKeyNotFound {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}
