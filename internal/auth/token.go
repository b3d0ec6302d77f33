package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"travel-booking/internal/models"
)

const issuer = "travel-booking"

type Claims struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens for API clients.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *TokenIssuer) Issue(actor models.Actor) (models.TokenResponse, error) {
	if actor.UserID == nil {
		return models.TokenResponse{}, errors.New("cannot issue a token for an anonymous actor")
	}
	now := t.now()
	claims := Claims{
		Username: actor.Username,
		Role:     actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(*actor.UserID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return models.TokenResponse{}, fmt.Errorf("sign token: %w", err)
	}
	return models.TokenResponse{
		AccessToken: signed,
		ExpiresIn:   int(t.ttl.Seconds()),
		TokenType:   "Bearer",
	}, nil
}

// Parse verifies the signature, expiry and issuer and returns the actor the token was issued to.
func (t *TokenIssuer) Parse(tokenString string) (models.Actor, error) {
	if tokenString == "" {
		return models.Actor{}, errors.New("empty token")
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return models.Actor{}, fmt.Errorf("failed to parse token: %w", err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return models.Actor{}, errors.New("subject claim is not a user id")
	}
	if claims.Role != models.RoleAuthenticated && claims.Role != models.RoleAdmin {
		return models.Actor{}, fmt.Errorf("unknown role %q in token", claims.Role)
	}

	return models.Actor{UserID: &userID, Username: claims.Username, Role: claims.Role}, nil
}

// ExtractTokenFromRequest extracts a JWT from the Authorization header.
// It returns "", nil when no header is present.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", nil
	}

	// Bearer token format: "Bearer {token}"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}
	return parts[1], nil
}
