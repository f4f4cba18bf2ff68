package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const TokenDuration = 7 * 24 * time.Hour

var (
	ErrExpiredToken = errors.New("token expired")
	ErrInvalidToken = errors.New("token tidak valid")
)

// Claims is what gets embedded in every session token. The frontend relies on
// the id/role/email field names, keep them stable.
type Claims struct {
	UserID int64  `json:"id"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type Maker struct {
	secret []byte
}

func NewMaker(secret string) (*Maker, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	return &Maker{secret: []byte(secret)}, nil
}

func (m *Maker) CreateToken(userID int64, role, email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenDuration)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// VerifyToken keeps expiry distinct from every other decode failure so callers
// can answer "Token expired" vs "Token tidak valid".
func (m *Maker) VerifyToken(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	return claims, nil
}
