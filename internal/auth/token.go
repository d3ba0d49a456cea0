package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the decoded payload shared by both token classes.
type Claims struct {
	UserID  string
	Email   string
	TokenID string
}

// TokenVerifier checks signature and expiry for one token class.
type TokenVerifier interface {
	Verify(tokenString string) (*Claims, error)
}

// TokenIssuer mints signed access and refresh tokens. The two classes are
// signed with distinct secrets so a leaked access secret cannot forge
// refresh tokens, and vice versa.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(accessSecret) == "" || strings.TrimSpace(refreshSecret) == "" {
		return nil, errors.New("auth: access and refresh signing secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh signing secrets must differ")
	}
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

func (i *TokenIssuer) IssueAccess(userID, email string) (string, error) {
	return signToken(i.accessSecret, userID, email, i.accessTTL)
}

func (i *TokenIssuer) IssueRefresh(userID, email string) (string, error) {
	return signToken(i.refreshSecret, userID, email, i.refreshTTL)
}

func (i *TokenIssuer) AccessTTL() time.Duration {
	return i.accessTTL
}

func (i *TokenIssuer) AccessVerifier() TokenVerifier {
	return hmacVerifier{secret: i.accessSecret}
}

func (i *TokenIssuer) RefreshVerifier() TokenVerifier {
	return hmacVerifier{secret: i.refreshSecret}
}

// signToken always mints a fresh jti, so two tokens for the same subject are
// never bit-identical even when issued in the same instant.
func signToken(secret []byte, userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

type hmacVerifier struct {
	secret []byte
}

func (v hmacVerifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return nil, ErrTokenInvalid
	}
	email, _ := claims["email"].(string)
	tokenID, _ := claims["jti"].(string)

	return &Claims{UserID: sub, Email: email, TokenID: tokenID}, nil
}
