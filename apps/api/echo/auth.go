package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/user"
)

const (
	ctxTokenKey = "userToken" // *jwt.Token set by the JWT middleware
	ctxUserKey  = "user"      // user.User cached by ctxUser
	audience    = "Community"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"` // first login; bounds token refreshes
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	Name         string   `json:"name,omitempty"`
	IsManager    bool     `json:"is_manager,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// NewClaims builds the claims of a fresh token for usr.
// origIat carries the original login time over token refreshes.
func NewClaims(usr user.User, conf *core.Config, origIat ...int64) *Claims {
	now := time.Now()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  audience,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
		},
		OrigIssuedAt: now.Unix(),
		Username:     usr.Username,
		Email:        usr.Email,
		Name:         usr.Name,
		IsManager:    usr.IsManager(),
		IsAdmin:      usr.IsAdmin(),
		Roles:        usr.Roles,
	}
	if len(origIat) > 0 {
		claims.OrigIssuedAt = origIat[0]
	}
	return claims
}

func (c Claims) hasAnyRole(roles []string) bool {
	for _, role := range roles {
		if core.StringInSlice(role, c.Roles) {
			return true
		}
	}
	return false
}

func (c Claims) refreshableAt(t time.Time, conf *core.Config) bool {
	return !t.After(time.Unix(c.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta))
}

// GenerateToken signs claims with the app secret key (HS256).
func GenerateToken(claims *Claims, conf *core.Config) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(conf.SecretKey))
	return signed, errors.Wrap(err, "signing token")
}

func issueToken(usr user.User, conf *core.Config) (string, error) {
	return GenerateToken(NewClaims(usr, conf), conf)
}

func jwtMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    ctxTokenKey,
		Claims:        new(Claims),
	})
}

// authenticate checks credentials and records the login.
func authenticate(ctx echo.Context, svc user.Service, creds LoginRequest) (user.User, error) {
	c := ctx.Request().Context()

	usr, err := svc.GetByUsernameOrEmail(c, creds.Username)
	switch {
	case errors.Cause(err) == user.ErrNotFound:
		return user.User{}, errAuthenticationFailed
	case err != nil:
		return user.User{}, errors.Wrap(err, "finding user by username or email")
	case usr.CheckPassword(creds.Password) != nil:
		return user.User{}, errAuthenticationFailed
	case !usr.IsActive:
		return user.User{}, errAccountDeactivated
	}

	usr, err = svc.SetLastLogin(c, usr)
	return usr, errors.Wrap(err, "setting lastLogin")
}

func ctxClaims(ctx echo.Context) (Claims, error) {
	token, ok := ctx.Get(ctxTokenKey).(*jwt.Token)
	if !ok {
		return Claims{}, errUnauthorized
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return Claims{}, errUnauthorized
	}
	return *claims, nil
}

// ctxUser loads the active user behind the request token, once per request.
func ctxUser(ctx echo.Context, svc user.Service) (user.User, error) {
	if usr, ok := ctx.Get(ctxUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := ctxClaims(ctx)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context claims")
	}
	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	switch {
	case errors.Cause(err) == user.ErrNotFound:
		return user.User{}, errUnauthorized
	case err != nil:
		return user.User{}, errors.Wrap(err, "finding user by ID")
	case !usr.IsActive:
		return user.User{}, errAccountDeactivated
	}

	ctx.Set(ctxUserKey, usr)
	return usr, nil
}

func ctxHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	claims, err := ctxClaims(ctx)
	return err == nil && claims.hasAnyRole(roles)
}

// refreshToken reissues the request token while the refresh window of its first login is open.
func refreshToken(ctx echo.Context, svc user.Service, conf *core.Config) (string, error) {
	usr, err := ctxUser(ctx, svc)
	if err != nil {
		return "", err
	}
	claims, err := ctxClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	if !claims.refreshableAt(time.Now(), conf) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(NewClaims(usr, conf, claims.OrigIssuedAt), conf)
	return token, errors.Wrap(err, "generating token")
}
