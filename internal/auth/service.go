package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"backend/internal/models"
)

// Service wires the credential store, hasher and token issuer into the
// account and session lifecycle operations.
type Service struct {
	store    UserStore
	hasher   Hasher
	tokens   *TokenIssuer
	maxUsers int64
}

// NewService constructs the auth service. maxUsers 0 disables the account
// capacity check.
func NewService(store UserStore, hasher Hasher, tokens *TokenIssuer, maxUsers int64) *Service {
	return &Service{store: store, hasher: hasher, tokens: tokens, maxUsers: maxUsers}
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Identity is the sanitized view handed to middleware and handlers.
type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// tokenDigest maps a refresh token to a deterministic digest, so the same
// token always compares equal upstream of the salted slow hash. The stored
// fingerprint is hash(digest), never the digest or the token itself.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Register creates a new account. No tokens are issued; login is a separate
// step.
func (s *Service) Register(ctx context.Context, email, password, username string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	if s.maxUsers > 0 {
		count, err := s.store.Count(ctx)
		if err != nil {
			return nil, err
		}
		if count >= s.maxUsers {
			return nil, ErrUserCapacity
		}
	}

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	if username != "" {
		if _, err := s.store.FindByUsername(ctx, username); err == nil {
			return nil, ErrUsernameTaken
		} else if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	created, err := s.store.Create(ctx, &models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	sanitized := created.Sanitized()
	return &sanitized, nil
}

// Login verifies the password and starts a session. Unknown email and wrong
// password both surface as ErrInvalidCredentials so callers cannot probe for
// registered addresses.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.FindByEmailWithSecret(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, user.ID.Hex(), user.Email)
	if err != nil {
		return nil, nil, err
	}

	sanitized := user.Sanitized()
	return pair, &sanitized, nil
}

// Refresh rotates the session for accountID. A presented token that does not
// match the stored fingerprint wipes the session entirely: a stale or forged
// refresh token is treated as possible theft, and even the currently valid
// token is rejected afterwards until the user logs in again.
//
// The read-verify-write sequence is not transactional. Two concurrent calls
// with the same valid token can both pass verification; the last write wins
// and the losing pair poisons the session on its first use.
func (s *Service) Refresh(ctx context.Context, accountID, refreshToken string) (*TokenPair, error) {
	user, err := s.store.FindByIDWithFingerprint(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if user.RefreshFingerprint == "" {
		return nil, ErrSessionNotFound
	}

	if !s.hasher.Verify(tokenDigest(refreshToken), user.RefreshFingerprint) {
		cleared := ""
		if err := s.store.Update(ctx, accountID, UserUpdate{RefreshFingerprint: &cleared}); err != nil {
			log.Println("[AUTH] [ERROR] refresh: session revoke failed:", err)
		}
		log.Println("[AUTH] [ERROR] refresh: fingerprint mismatch, session revoked")
		return nil, ErrSessionNotFound
	}

	return s.issuePair(ctx, accountID, user.Email)
}

// VerifyRefresh checks the refresh token's signature and expiry and returns
// its subject. The fingerprint comparison happens in Refresh.
func (s *Service) VerifyRefresh(tokenString string) (string, error) {
	claims, err := s.tokens.RefreshVerifier().Verify(tokenString)
	if err != nil {
		return "", ErrTokenInvalid
	}
	return claims.UserID, nil
}

// Logout unconditionally clears the stored fingerprint. Idempotent: a second
// call, or a call with no active session, also succeeds.
func (s *Service) Logout(ctx context.Context, accountID string) error {
	cleared := ""
	return s.store.Update(ctx, accountID, UserUpdate{RefreshFingerprint: &cleared})
}

// VerifyAccess resolves an access token to a sanitized identity. This path
// never reads or mutates the refresh fingerprint.
func (s *Service) VerifyAccess(ctx context.Context, tokenString string) (*Identity, error) {
	claims, err := s.tokens.AccessVerifier().Verify(tokenString)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	user, err := s.store.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	return &Identity{ID: user.ID.Hex(), Email: user.Email, Username: user.Username}, nil
}

// issuePair mints a fresh access/refresh pair and persists the new refresh
// fingerprint, replacing whatever was stored before. Overwriting is the
// revocation mechanism: the previous refresh token stops matching.
func (s *Service) issuePair(ctx context.Context, userID, email string) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(userID, email)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(userID, email)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	fingerprint, err := s.hasher.Hash(tokenDigest(refresh))
	if err != nil {
		return nil, fmt.Errorf("hash refresh fingerprint: %w", err)
	}

	if err := s.store.Update(ctx, userID, UserUpdate{RefreshFingerprint: &fingerprint}); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}
