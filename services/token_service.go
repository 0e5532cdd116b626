package services

import (
	"time"

	"nfl-pickem-live/apperror"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "nfl-pickem-live"

// Claims identify the caller. Admin grants the administrator boundary.
type Claims struct {
	UserID int    `json:"user_id"`
	Name   string `json:"name"`
	Admin  bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 identity tokens
type TokenService struct {
	secret []byte
	expiry time.Duration
}

func NewTokenService(secret string, expiry time.Duration) *TokenService {
	if expiry <= 0 {
		expiry = 24 * 30 * 6 * time.Hour
	}
	return &TokenService{secret: []byte(secret), expiry: expiry}
}

// Issue signs a token for the user
func (s *TokenService) Issue(userID int, name string, admin bool) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Name:   name,
		Admin:  admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Validate parses the token and returns its claims
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Newf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "invalid token"), apperror.ErrForbidden)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, apperror.Forbidden("invalid token")
	}
	return claims, nil
}
