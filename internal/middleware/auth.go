package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"catalog-admin-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	contextUserKey    = "user"
	contextTokenIDKey = "token_id"
)

// Claims represents the JWT claims. RegisteredClaims.ID is the access token row id.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies HS256 bearer tokens
type TokenSigner struct {
	secret []byte
}

func NewTokenSigner(secret string) *TokenSigner {
	return &TokenSigner{secret: []byte(secret)}
}

// Sign encodes token as a bearer string for user.
func (s *TokenSigner) Sign(user *models.User, token *models.PersonalAccessToken) (string, error) {
	claims := Claims{
		UserID: user.ID.String(),
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       token.ID.String(),
			Subject:  user.ID.String(),
			IssuedAt: jwt.NewNumericDate(token.CreatedAt),
		},
	}
	if token.ExpiresAt != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*token.ExpiresAt)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse validates the signature and the registered claims.
func (s *TokenSigner) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Make sure token method is HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// TokenAuthenticator resolves a live access token to its user
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, tokenID, userID uuid.UUID, now time.Time) (*models.User, error)
}

// AuthMiddleware requires a valid bearer token backed by an unrevoked, unexpired token row.
func AuthMiddleware(signer *TokenSigner, tokens TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthenticated(c)
			return
		}

		claims, err := signer.Parse(tokenString)
		if err != nil {
			abortUnauthenticated(c)
			return
		}

		tokenID, err := uuid.Parse(claims.ID)
		if err != nil {
			abortUnauthenticated(c)
			return
		}
		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			abortUnauthenticated(c)
			return
		}

		user, err := tokens.Authenticate(c.Request.Context(), tokenID, userID, time.Now())
		if err != nil {
			abortUnauthenticated(c)
			return
		}

		c.Set(contextUserKey, user)
		c.Set(contextTokenIDKey, tokenID)
		c.Next()
	}
}

// RequireAdmin allows only users flagged as administrators.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortUnauthenticated(c)
			return
		}
		if !user.IsAdmin {
			_ = c.Error(NewForbiddenError("This action requires administrator privileges."))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(contextUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// CurrentTokenID returns the id of the token used for this request.
func CurrentTokenID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(contextTokenIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func abortUnauthenticated(c *gin.Context) {
	_ = c.Error(NewUnauthenticatedError(""))
	c.Abort()
}
