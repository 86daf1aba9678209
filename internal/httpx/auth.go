package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	ID   int64
	Role string
}

type actorKey struct{}

func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth verifies HS256 bearer tokens issued by the session service. The
// subject claim carries the numeric user id.
type Auth struct {
	Secret []byte
}

func (a *Auth) parse(header string) (Actor, error) {
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenStr == "" {
		return Actor{}, errors.New("missing bearer token")
	}
	var c Claims
	_, err := jwt.ParseWithClaims(tokenStr, &c, func(*jwt.Token) (any, error) {
		return a.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Actor{}, err
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Actor{}, errors.New("invalid subject claim")
	}
	return Actor{ID: id, Role: c.Role}, nil
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.parse(r.Header.Get("Authorization"))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}

// RequireRole ensures the authenticated actor has role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, ok := ActorFrom(r.Context())
			if !ok || a.Role != role {
				writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden", Message: "access denied"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SignToken issues a token in the format Middleware accepts.
func SignToken(secret []byte, userID int64, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
}
