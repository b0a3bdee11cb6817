package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

const (
	contextTokenKey     = "userToken"
	contextPrincipalKey = "principal"
	tokenAudience       = "Kazi"
	tokenLifetime       = 24 * time.Hour
)

// Claims represents the authorization claims transmitted via a JWT issued by the identity provider.
// Subject is the principal id.
type Claims struct {
	jwt.StandardClaims
	Name     string   `json:"name,omitempty"`
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// GetUserClaims returns the claims the identity provider would issue for usr.
func GetUserClaims(usr user.User, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(tokenLifetime).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:     usr.Name,
		Username: usr.Username,
		Email:    usr.Email,
		Roles:    usr.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	jwtConf := newJWTConfig(conf)
	method := jwt.GetSigningMethod(jwtConf.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(jwtConf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// principal builds a principal from the token alone, for identities not mirrored on the roster.
func (c Claims) principal() user.User {
	return user.User{
		ID:       c.Subject,
		Name:     c.Name,
		Username: c.Username,
		Email:    c.Email,
		IsActive: true,
		Roles:    c.Roles,
	}
}

// getContextPrincipal returns the principal resolved by principalMiddleware.
func getContextPrincipal(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextPrincipalKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

// loadPrincipal resolves the principal of the token: the roster entry when there is one, the claims otherwise.
func loadPrincipal(ctx echo.Context, svc *user.Service) (user.User, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	if claims.Subject == "" {
		return user.User{}, errUnauthorized
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	switch {
	case err == nil:
		if !usr.IsActive {
			return user.User{}, errAccountDeactivated
		}
		return usr, nil
	case errors.Cause(err) == user.ErrNotFound:
		return claims.principal(), nil
	}
	return user.User{}, errors.Wrap(err, "finding principal by ID")
}
