package service

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the iss claim of every token this service signs.
const Issuer = "tibero"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrNoSecret           = errors.New("jwt secret is not configured")
)

// Principal is the identity carried by a validated token.
type Principal struct {
	Subject string
	// Schemas limits reflection to these schemas. Empty means every schema.
	Schemas   []string
	ExpiresAt time.Time
}

// CanReflect reports whether the principal may reflect schema. Schema
// names compare case-insensitively.
func (p *Principal) CanReflect(schema string) bool {
	if len(p.Schemas) == 0 {
		return true
	}
	return slices.ContainsFunc(p.Schemas, func(s string) bool {
		return strings.EqualFold(s, schema)
	})
}

// AuthService signs and validates the HS256 bearer tokens that guard the
// reflection API.
type AuthService struct {
	jwtSecret []byte
}

func NewAuthService(jwtSecret string) *AuthService {
	return &AuthService{jwtSecret: []byte(jwtSecret)}
}

// ValidateJWT verifies a bearer token and returns its principal.
func (s *AuthService) ValidateJWT(tokenStr string) (*Principal, error) {
	if len(s.jwtSecret) == 0 {
		return nil, ErrNoSecret
	}
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidCredentials
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidCredentials
	}

	return &Principal{
		Subject:   claims.Subject,
		Schemas:   claims.Schemas,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// IssueJWT creates a signed token for subject valid for ttl. schemas
// restricts the token to those schemas.
func (s *AuthService) IssueJWT(subject string, schemas []string, ttl time.Duration) (string, error) {
	if len(s.jwtSecret) == 0 {
		return "", ErrNoSecret
	}
	if subject == "" {
		return "", errors.New("token subject is required")
	}
	now := time.Now()
	claims := jwtClaims{
		Schemas: schemas,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

type jwtClaims struct {
	Schemas []string `json:"schemas,omitempty"`
	jwt.RegisteredClaims
}
