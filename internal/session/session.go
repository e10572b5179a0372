package session

import (
	"context" // Context for Redis operations
	"fmt"     // Error wrapping
	"time"    // Session lifetime

	"discord_polls/internal/domain"
	"discord_polls/internal/utils"

	"github.com/google/uuid"       // Session ids and OAuth state
	"github.com/redis/go-redis/v9" // Redis client
)

// CookieName is the cookie carrying the signed session id
const CookieName = "poll_session"

// Data is what a visitor's session remembers between requests
type Data struct {
	Username      string `json:"username,omitempty"`
	Discriminator string `json:"discriminator,omitempty"`
	CurrentPollID uint   `json:"current_poll_id,omitempty"`
	OAuthState    string `json:"oauth_state,omitempty"`
}

// Session is one visitor's session. New sessions exist only in memory
// until saved.
type Session struct {
	ID string
	Data
	isNew bool
}

// IsNew reports whether the session was created for this request and has
// not been saved yet. Such a session has no cookie.
func (s *Session) IsNew() bool { return s.isNew }

// Identity returns the logged-in identity, if any
func (s *Session) Identity() (*domain.Identity, bool) {
	if s.Username == "" {
		return nil, false
	}
	return &domain.Identity{Username: s.Username, Discriminator: s.Discriminator}, true
}

// Login stores id as the session's identity and forgets the OAuth state
func (s *Session) Login(id domain.Identity) {
	s.Username = id.Username
	s.Discriminator = id.Discriminator
	s.OAuthState = ""
}

// Options configure a Store
type Options struct {
	Secret string        // HMAC key for the cookie token
	TTL    time.Duration // Sliding lifetime
	Secure bool          // Send the cookie over HTTPS only
}

// Store keeps session data in Redis, keyed by an id that travels in a
// signed cookie.
type Store struct {
	rdb  redis.Cmdable
	opts Options
}

// NewStore creates a store backed by rdb
func NewStore(rdb redis.Cmdable, opts Options) *Store {
	return &Store{rdb: rdb, opts: opts}
}

// TTL is the lifetime of a session since its last use
func (s *Store) TTL() time.Duration { return s.opts.TTL }

// Secure reports whether the cookie is restricted to HTTPS
func (s *Store) Secure() bool { return s.opts.Secure }

// Load resolves the session a cookie points at. A missing, forged or
// expired cookie, or one whose data is gone from Redis, yields a fresh
// session; only Redis failures are errors.
func (s *Store) Load(ctx context.Context, cookieValue string) (*Session, error) {
	if cookieValue == "" {
		return s.fresh(), nil // First visit
	}

	claims, err := utils.ParseSessionToken(cookieValue, s.opts.Secret)
	if err != nil {
		return s.fresh(), nil // Forged or expired cookie
	}

	sess := &Session{ID: claims.SessionID}
	found, err := utils.GetCache(ctx, s.rdb, utils.SessionKey(sess.ID), &sess.Data)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return s.fresh(), nil // Data expired or destroyed
	}

	if err := utils.TouchCache(ctx, s.rdb, utils.SessionKey(sess.ID), s.opts.TTL); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}

	return sess, nil
}

// Save persists the session data
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if err := utils.SetCache(ctx, s.rdb, utils.SessionKey(sess.ID), sess.Data, s.opts.TTL); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	sess.isNew = false // Stored, the cookie can point at it now
	return nil
}

// Destroy removes the session data. The session is cleared in place and
// gets a new id so it can keep serving the current request anonymously.
func (s *Store) Destroy(ctx context.Context, sess *Session) error {
	if err := utils.DeleteCache(ctx, s.rdb, utils.SessionKey(sess.ID)); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	*sess = *s.fresh() // Anonymous from here on
	return nil
}

// Token signs the cookie value for sess
func (s *Store) Token(sess *Session) (string, error) {
	return utils.GenerateSessionToken(sess.ID, s.opts.Secret, s.opts.TTL)
}

// NewState returns a random OAuth state value
func NewState() string {
	return uuid.NewString()
}

func (s *Store) fresh() *Session {
	return &Session{ID: uuid.NewString(), isNew: true}
}
