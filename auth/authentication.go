package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lungcare/clinic/config"
)

var (
	ErrUnauthenticated          = fmt.Errorf("session token is invalid")
	ErrSecretMissing            = fmt.Errorf("auth secret is missing")
	AuthContextKey              = AuthKey("auth")
	AuthorizationHeaderKey      = "Authorization"
	BearerPrefix                = "Bearer "
	DefaultCacheSize            = 10000           // Cache up to 10000 tokens
	DefaultCacheEntryExpiration = 5 * time.Minute // Cache tokens for 5 minutes
)

type AuthKey string

// Auth identifies the caller. Staff tokens carry the doctors whose patients the caller
// follows, server tokens are issued to schedulers and ingestion jobs.
type Auth struct {
	SubjectId    string               `json:"subjectId"`
	DoctorIds    []primitive.ObjectID `json:"doctorIds"`
	ServerAccess bool                 `json:"serverAccess"`
}

func IsServerAuth(a *Auth) bool {
	return a != nil && a.ServerAccess
}

func IsAuthenticated(a *Auth) bool {
	return a != nil && a.SubjectId != ""
}

// Claims are the private claims of a clinic session token.
type Claims struct {
	jwt.RegisteredClaims
	DoctorIds []string `json:"doctorIds,omitempty"`
	Server    bool     `json:"server,omitempty"`
}

type Authenticator interface {
	ValidateAndSetAuthData(token string, ec echo.Context) (bool, error)
}

type AuthMiddlewareOpts struct {
	Skipper middleware.Skipper
}

func NewAuthMiddleware(authenticator Authenticator, opts AuthMiddlewareOpts) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Allow skipping authentication for certain routes (e.g. readiness probe)
			if opts.Skipper != nil {
				if opts.Skipper(c) {
					return next(c)
				}
			}

			header := c.Request().Header.Get(AuthorizationHeaderKey)
			token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
			if header == "" || token == "" || token == header {
				return echo.NewHTTPError(http.StatusBadRequest, "session token is missing")
			}

			valid, err := authenticator.ValidateAndSetAuthData(token, c)
			if err != nil {
				return &echo.HTTPError{
					Code:     http.StatusUnauthorized,
					Message:  "session token is invalid",
					Internal: err,
				}
			} else if valid {
				return next(c)
			}
			return echo.ErrUnauthorized
		}
	}
}

// NewAuthenticator returns a token authenticator that caches validated tokens
func NewAuthenticator(cfg *config.Config) (Authenticator, error) {
	delegate, err := NewTokenAuthenticator(cfg.AuthSecret)
	if err != nil {
		return nil, err
	}
	return NewCachingAuthenticator(
		DefaultCacheSize,
		DefaultCacheEntryExpiration,
		delegate,
		IsAuthenticated,
	)
}

// TokenAuthenticator validates HMAC signed session tokens.
type TokenAuthenticator struct {
	secret []byte
	parser *jwt.Parser
}

var _ Authenticator = &TokenAuthenticator{}

func NewTokenAuthenticator(secret string) (*TokenAuthenticator, error) {
	if secret == "" {
		return nil, ErrSecretMissing
	}
	return &TokenAuthenticator{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		})),
	}, nil
}

func (t *TokenAuthenticator) ValidateAndSetAuthData(token string, ec echo.Context) (bool, error) {
	auth, err := t.Parse(token)
	if err != nil {
		return false, err
	}

	SetAuthData(ec, auth)
	return true, nil
}

func (t *TokenAuthenticator) Parse(token string) (*Auth, error) {
	claims := Claims{}
	_, err := t.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: subject is missing", ErrUnauthenticated)
	}

	doctorIds := make([]primitive.ObjectID, 0, len(claims.DoctorIds))
	for _, id := range claims.DoctorIds {
		doctorId, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid doctor id %q", ErrUnauthenticated, id)
		}
		doctorIds = append(doctorIds, doctorId)
	}

	return &Auth{
		SubjectId:    claims.Subject,
		DoctorIds:    doctorIds,
		ServerAccess: claims.Server,
	}, nil
}

// Sign issues a session token for the given auth data. It is used by the command line
// tools and in tests.
func (t *TokenAuthenticator) Sign(auth Auth, expiration time.Duration) (string, error) {
	doctorIds := make([]string, 0, len(auth.DoctorIds))
	for _, id := range auth.DoctorIds {
		doctorIds = append(doctorIds, id.Hex())
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   auth.SubjectId,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
		DoctorIds: doctorIds,
		Server:    auth.ServerAccess,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func GetAuthData(ctx context.Context) *Auth {
	if auth, ok := ctx.Value(AuthContextKey).(*Auth); ok {
		return auth
	}

	return nil
}

func SetAuthData(ec echo.Context, auth *Auth) {
	ctx := context.WithValue(ec.Request().Context(), AuthContextKey, auth)
	ec.SetRequest(ec.Request().WithContext(ctx))
}

type CacheEntry struct {
	token  string
	auth   *Auth
	expiry time.Time
}

func (c CacheEntry) IsExpired() bool {
	return time.Now().After(c.expiry)
}

type CachingAuthenticator struct {
	delegate    Authenticator
	expiration  time.Duration
	lru         *simplelru.LRU
	mu          *sync.Mutex
	shouldCache func(*Auth) bool
}

var _ Authenticator = &CachingAuthenticator{}

func NewCachingAuthenticator(size int, expiration time.Duration, delegate Authenticator, shouldCache func(*Auth) bool) (Authenticator, error) {
	var onEvict simplelru.EvictCallback
	lru, err := simplelru.NewLRU(size, onEvict)
	if err != nil {
		return nil, err
	}

	return &CachingAuthenticator{
		delegate:    delegate,
		expiration:  expiration,
		lru:         lru,
		mu:          &sync.Mutex{},
		shouldCache: shouldCache,
	}, nil
}

func (c CachingAuthenticator) ValidateAndSetAuthData(token string, ec echo.Context) (bool, error) {
	entry := c.getCachedEntry(token)
	if entry != nil {
		SetAuthData(ec, entry.auth)
		return true, nil
	}

	res, err := c.delegate.ValidateAndSetAuthData(token, ec)
	if err != nil || !res {
		return res, err
	}

	auth := GetAuthData(ec.Request().Context())
	if c.shouldCache(auth) {
		entry := CacheEntry{
			token:  token,
			auth:   auth,
			expiry: time.Now().Add(c.expiration),
		}
		c.setCacheEntry(entry)
	}

	return res, err
}

func (c *CachingAuthenticator) getCachedEntry(token string) *CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.lru.Get(token); ok {
		entry := e.(CacheEntry)
		if entry.IsExpired() {
			c.lru.Remove(token)
			return nil
		}
		return &entry
	}

	return nil
}

func (c *CachingAuthenticator) setCacheEntry(entry CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.lru.Add(entry.token, entry)
}
