package jwt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

// Issuer signs access tokens and keeps refresh tokens in a RefreshStore.
type Issuer struct {
	secret    []byte
	accessTTL time.Duration
	store     RefreshStore
	now       func() time.Time
}

func NewIssuer(secret string, accessTTL time.Duration, store RefreshStore) *Issuer {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &Issuer{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		store:     store,
		now:       time.Now,
	}
}

func (i *Issuer) CreateToken(user User) (string, error) {
	if len(i.secret) == 0 {
		return "", fmt.Errorf("signing secret is not configured")
	}

	claims := jwt.MapClaims{
		"id":    user.ID,
		"email": user.Email,
		"roles": user.Roles,
		"exp":   i.now().Add(i.accessTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

func (i *Issuer) CreateTokenWithRefresh(ctx context.Context, user User) (TokenResponse, error) {
	accessToken, err := i.CreateToken(user)
	if err != nil {
		return TokenResponse{}, err
	}
	if i.store == nil {
		return TokenResponse{AccessToken: accessToken}, nil
	}

	refreshToken := uuid.NewString() + uuid.NewString()
	userData, err := json.Marshal(User{ID: user.ID, Email: user.Email, Roles: user.Roles})
	if err != nil {
		return TokenResponse{}, err
	}

	if err := i.store.Set(ctx, refreshToken, userData, RefreshTokenTTL); err != nil {
		return TokenResponse{}, fmt.Errorf("store refresh token: %w", err)
	}

	return TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// ParseToken validates an access token and returns the user it was issued to.
func (i *Issuer) ParseToken(tokenString string) (User, error) {
	if tokenString == "" {
		return User{}, fmt.Errorf("token string is empty")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil {
		return User{}, fmt.Errorf("unauthorized: %w", err)
	}
	if !token.Valid {
		return User{}, fmt.Errorf("token is not valid - unauthorized")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return User{}, fmt.Errorf("claims of unauthorized type")
	}

	exp, _ := claims["exp"].(float64)
	if i.now().Unix() > int64(exp) {
		return User{}, fmt.Errorf("token expired")
	}

	user := User{}
	user.ID, _ = claims["id"].(string)
	user.Email, _ = claims["email"].(string)
	if raw, ok := claims["roles"].([]interface{}); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				user.Roles = append(user.Roles, s)
			}
		}
	}
	if user.ID == "" {
		return User{}, fmt.Errorf("token missing identifiers")
	}
	return user, nil
}

// Refresh issues a new access token for a stored refresh token and slides its expiry.
func (i *Issuer) Refresh(ctx context.Context, refreshToken string) (TokenResponse, error) {
	if refreshToken == "" {
		return TokenResponse{}, fmt.Errorf("refresh token is empty")
	}
	if i.store == nil {
		return TokenResponse{}, ErrRefreshNotFound
	}

	val, err := i.store.Get(ctx, refreshToken)
	if err != nil {
		return TokenResponse{}, err
	}

	var user User
	if err := json.Unmarshal(val, &user); err != nil {
		return TokenResponse{}, fmt.Errorf("invalid token data")
	}

	if err := i.store.Expire(ctx, refreshToken, RefreshTokenTTL); err != nil {
		return TokenResponse{}, fmt.Errorf("failed to update refresh token expiration: %w", err)
	}

	access, err := i.CreateToken(user)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{AccessToken: access, RefreshToken: refreshToken}, nil
}

func (i *Issuer) Revoke(ctx context.Context, refreshToken string) error {
	if i.store == nil || refreshToken == "" {
		return nil
	}
	return i.store.Del(ctx, refreshToken)
}
