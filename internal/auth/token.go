package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/hitoshi/mangashelf/internal/model"
)

// Claims はアクセストークンに含めるクレーム。
// SubjectにユーザーIDを格納する。
type Claims struct {
	Email    string     `json:"email"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID はトークンの主体であるユーザーIDを返す。
func (c *Claims) UserID() string {
	return c.Subject
}

// TokenIssuer はHS256で署名したアクセストークンの発行と検証を行う。
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer はTokenIssuerを生成する。
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue はユーザーのアクセストークンを発行する。
func (t *TokenIssuer) Issue(user *model.User) (string, error) {
	now := t.now()
	claims := &Claims{
		Email:    user.Email,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken はトークンの署名・アルゴリズム・有効期限を検証してクレームを返す。
// 検証に失敗した場合はINVALID_TOKENのAPIErrorを返す。
func (t *TokenIssuer) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.Parser{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, model.NewInvalidTokenError()
	}
	if claims.Subject == "" {
		return nil, model.NewInvalidTokenError()
	}
	return claims, nil
}
