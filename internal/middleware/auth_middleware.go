package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/Dhoini/subscription-service/pkg/res"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextKey тип для ключей контекста во избежание коллизий.
type ContextKey string

const (
	// ContextUserIDKey ключ для хранения ID пользователя в контексте.
	ContextUserIDKey ContextKey = "userID"
	ContextEmailKey  ContextKey = "userEmail"
	ContextRoleKey   ContextKey = "userRole"
	authHeaderPrefix            = "Bearer "
)

type TokenValidator interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// UserLookup источник актуальной роли пользователя.
// Роль меняется при подтверждении и возврате, токен об этом не знает.
type UserLookup interface {
	GetByID(ctx context.Context, userID string) (*domain.User, error)
}

type TokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type JWTMiddleware struct {
	log       *logger.Logger
	validator TokenValidator
	users     UserLookup
}

// NewJWTMiddleware создает middleware; users может быть nil, тогда роль берется из токена.
func NewJWTMiddleware(log *logger.Logger, validator TokenValidator, users UserLookup) *JWTMiddleware {
	return &JWTMiddleware{
		log:       log,
		validator: validator,
		users:     users,
	}
}

func (m *JWTMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, authHeaderPrefix) {
			m.handleAuthError(c, "Missing authorization token")
			return
		}

		claims, err := m.validator.Validate(strings.TrimPrefix(authHeader, authHeaderPrefix))
		if err != nil {
			m.handleAuthError(c, fmt.Sprintf("Token validation failed: %v", err))
			return
		}

		userID := claims.Subject
		if userID == "" {
			m.handleAuthError(c, "User ID (sub) missing in token")
			return
		}

		role, err := m.resolveRole(c.Request.Context(), userID, domain.Role(claims.Role))
		if err != nil {
			m.log.Errorw("Failed to resolve user role", "error", err, "userID", userID)
			res.JsonErrorResponse(c.Writer, res.ErrorResponse{Message: "Internal server error"}, http.StatusInternalServerError, m.log)
			c.Abort()
			return
		}

		c.Set(string(ContextUserIDKey), userID)
		c.Set(string(ContextEmailKey), claims.Email)
		c.Set(string(ContextRoleKey), role)
		m.log.Debugw("User authenticated via HTTP", "userID", userID, "role", role)
		c.Next()
	}
}

// RequireRoles пропускает только перечисленные роли
func (m *JWTMiddleware) RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok || !slices.Contains(roles, actor.Role) {
			m.handleForbidden(c, actor.Role)
			return
		}
		c.Next()
	}
}

// ForbidRoles отклоняет перечисленные роли
func (m *JWTMiddleware) ForbidRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok || slices.Contains(roles, actor.Role) {
			m.handleForbidden(c, actor.Role)
			return
		}
		c.Next()
	}
}

func (m *JWTMiddleware) resolveRole(ctx context.Context, userID string, tokenRole domain.Role) (domain.Role, error) {
	if tokenRole == "" {
		tokenRole = domain.RoleUser
	}
	if m.users == nil {
		return tokenRole, nil
	}
	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return tokenRole, nil
		}
		return "", err
	}
	// администратора нельзя понизить записью в базе
	if tokenRole == domain.RoleAdmin || user.Role == "" {
		return tokenRole, nil
	}
	return user.Role, nil
}

func (m *JWTMiddleware) handleAuthError(c *gin.Context, message string) {
	m.log.Warnw("HTTP authentication failed", "path", c.Request.URL.Path, "error", message)
	res.JsonErrorResponse(c.Writer, res.ErrorResponse{Message: "Unauthorized"}, http.StatusUnauthorized, m.log)
	c.Abort()
}

func (m *JWTMiddleware) handleForbidden(c *gin.Context, role domain.Role) {
	m.log.Warnw("HTTP authorization failed", "path", c.Request.URL.Path, "role", role)
	res.JsonErrorResponse(c.Writer, res.ErrorResponse{
		Message: fmt.Sprintf("Role %s is not allowed to access this resource", role),
	}, http.StatusForbidden, m.log)
	c.Abort()
}

// ActorFromContext собирает аутентифицированного пользователя из контекста Gin.
func ActorFromContext(c *gin.Context) (domain.Actor, bool) {
	userID := c.GetString(string(ContextUserIDKey))
	if userID == "" {
		return domain.Actor{}, false
	}
	role, _ := c.Get(string(ContextRoleKey))
	r, _ := role.(domain.Role)
	return domain.Actor{
		UserID: userID,
		Email:  c.GetString(string(ContextEmailKey)),
		Role:   r,
	}, true
}

// DefaultTokenValidator - HMAC валидатор токенов.
type DefaultTokenValidator struct {
	Secret []byte
}

func NewTokenValidator(secret string) *DefaultTokenValidator {
	return &DefaultTokenValidator{Secret: []byte(secret)}
}

func (v *DefaultTokenValidator) Validate(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.Secret, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, errors.New("malformed token")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, errors.New("invalid token signature")
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, errors.New("token expired")
		default:
			return nil, fmt.Errorf("invalid token: %w", err)
		}
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token claims")
}

// Issue выпускает токен HS256. Токены выпускает сервис пользователей, здесь - для тестов и локальной отладки.
func (v *DefaultTokenValidator) Issue(userID, email string, role domain.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Email: email,
		Role:  string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.Secret)
}
