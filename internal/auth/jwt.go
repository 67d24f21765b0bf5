package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"staffdesk/internal/models"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// TokenClaims is the wire form of an access token.
type TokenClaims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`
	Email string `json:"email"`
}

type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{key: []byte(secret), ttl: ttl, now: time.Now}
}

// Issued describes a freshly signed token so the caller can persist its session row.
type Issued struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

func (i *Issuer) Sign(u models.User) (Issued, error) {
	now := i.now()
	out := Issued{JTI: uuid.NewString(), ExpiresAt: now.Add(i.ttl)}
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ID:        out.JTI,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(out.ExpiresAt),
		},
		Role:  u.Role,
		Email: u.Email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(i.key)
	if err != nil {
		return Issued{}, fmt.Errorf("sign token: %w", err)
	}
	out.Token = s
	return out, nil
}

func (i *Issuer) Verify(tokenStr string) (Claims, error) {
	var tc TokenClaims
	tok, err := jwt.ParseWithClaims(tokenStr, &tc, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if !tok.Valid || tc.Subject == "" {
		return Claims{}, ErrTokenInvalid
	}
	return Claims{Subject: tc.Subject, Role: tc.Role, JWTID: tc.ID}, nil
}
