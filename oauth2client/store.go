package oauth2client

import "sync"

// TokenStore is keyed storage of tokens by fingerprint. Implementations must
// be safe for any number of concurrent callers, with reads and writes
// linearizable per fingerprint.
//
// The default MemoryTokenStore is volatile; plug in a durable implementation
// here to persist tokens across restarts.
type TokenStore interface {
	// Token returns the stored token for the fingerprint of (config,
	// authorization), if any.
	Token(config *ClientConfig, authorization Authorization) (Token, bool)

	// Store atomically replaces the token for the fingerprint. Tokens
	// without an access token are not stored.
	Store(token Token, config *ClientConfig, authorization Authorization)

	// Invalidate removes the token for the fingerprint, if present.
	Invalidate(config *ClientConfig, authorization Authorization)
}

// MemoryTokenStore is the default in-memory TokenStore. Contents are lost on
// process restart.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[Fingerprint]Token
}

// NewMemoryTokenStore creates an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[Fingerprint]Token)}
}

// Token implements TokenStore.
func (s *MemoryTokenStore) Token(config *ClientConfig, authorization Authorization) (Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.tokens[config.Fingerprint(authorization)]
	return token, ok
}

// Store implements TokenStore.
func (s *MemoryTokenStore) Store(token Token, config *ClientConfig, authorization Authorization) {
	// A stored token is either absent or structurally valid.
	if token.AccessToken == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[config.Fingerprint(authorization)] = token
}

// Invalidate implements TokenStore.
func (s *MemoryTokenStore) Invalidate(config *ClientConfig, authorization Authorization) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, config.Fingerprint(authorization))
}
