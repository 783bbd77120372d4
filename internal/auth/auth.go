// Package auth verifies bearer tokens issued by the external identity
// provider and turns them into a Principal for the handlers.
package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultEmailClaim = "sub"
	DefaultRoleClaim  = "userType"
	AdminRole         = "admin"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSubject    = errors.New("token has no subject")
)

// Principal is the authenticated caller.
type Principal struct {
	Email string
	Role  string
}

func (p Principal) IsAdmin() bool { return p.Role == AdminRole }

// Config selects how tokens are checked. Exactly one of HMACSecret and
// PublicKeyPEM must be set.
type Config struct {
	HMACSecret   []byte
	PublicKeyPEM []byte
	Issuer       string
	Audience     string
	EmailClaim   string
	RoleClaim    string
	Leeway       time.Duration
}

// LoadPublicKey reads a PEM-encoded RSA public key into cfg.
func (c *Config) LoadPublicKey(path string) error {
	pem, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}
	c.PublicKeyPEM = pem
	return nil
}

// Verifier validates signature, expiry, issuer and audience of a JWT.
type Verifier struct {
	key        any
	parser     *jwt.Parser
	emailClaim string
	roleClaim  string
}

func NewVerifier(cfg Config) (*Verifier, error) {
	var (
		key    any
		method string
	)
	switch {
	case len(cfg.HMACSecret) > 0 && len(cfg.PublicKeyPEM) > 0:
		return nil, errors.New("auth: configure either an HMAC secret or a public key, not both")
	case len(cfg.HMACSecret) > 0:
		key, method = cfg.HMACSecret, jwt.SigningMethodHS256.Alg()
	case len(cfg.PublicKeyPEM) > 0:
		pub, err := jwt.ParseRSAPublicKeyFromPEM(cfg.PublicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("auth: parse public key: %w", err)
		}
		key, method = pub, jwt.SigningMethodRS256.Alg()
	default:
		return nil, errors.New("auth: no verification key configured")
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(cfg.Audience))
	}

	v := &Verifier{
		key:        key,
		parser:     jwt.NewParser(parserOpts...),
		emailClaim: cfg.EmailClaim,
		roleClaim:  cfg.RoleClaim,
	}
	if v.emailClaim == "" {
		v.emailClaim = DefaultEmailClaim
	}
	if v.roleClaim == "" {
		v.roleClaim = DefaultRoleClaim
	}
	return v, nil
}

// Verify checks a raw token and returns its principal.
func (v *Verifier) Verify(raw string) (Principal, error) {
	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	email, _ := claims[v.emailClaim].(string)
	if strings.TrimSpace(email) == "" {
		return Principal{}, ErrNoSubject
	}
	role, _ := claims[v.roleClaim].(string)
	return Principal{Email: email, Role: role}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}
