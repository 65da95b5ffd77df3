package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/roomly/roomly-server/internal/types"
)

const (
	userIdClaim = "user-id"
	roleClaim   = "role"
	expClaim    = "exp"

	// TokenCookieKey names the cookie carrying the session token.
	TokenCookieKey = "token"
)

var (
	// ErrUnauthenticated means no usable credential was presented.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidCredential means a credential was presented but rejected.
	ErrInvalidCredential = errors.New("invalid credential")
)

// Identity is the authenticated principal behind a token.
type Identity struct {
	UserId int
	Role   types.Role
}

// Verifier issues and checks HS256 session tokens.
type Verifier struct {
	key []byte
	now func() time.Time
}

func NewVerifier(signingKey []byte) *Verifier {
	return &Verifier{key: signingKey, now: time.Now}
}

func (v *Verifier) CreateToken(id int, role types.Role, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIdClaim: id,
		roleClaim:   string(role),
		expClaim:    v.now().Add(exp).Unix(),
	})

	return token.SignedString(v.key)
}

func (v *Verifier) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrUnauthenticated
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil {
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) && vErr.Errors&jwt.ValidationErrorMalformed != 0 {
			return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	if !token.Valid {
		return Identity{}, ErrInvalidCredential
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("%w: invalid token claims", ErrInvalidCredential)
	}

	// tokens without an expiry never lapse under MapClaims.Valid
	if _, ok := claims[expClaim]; !ok {
		return Identity{}, fmt.Errorf("%w: missing exp claim", ErrInvalidCredential)
	}

	userId, ok := claims[userIdClaim].(float64)
	if !ok || userId <= 0 {
		return Identity{}, fmt.Errorf("%w: invalid user id claim", ErrInvalidCredential)
	}

	role, _ := claims[roleClaim].(string)
	if role == "" {
		role = string(types.RoleUser)
	}

	return Identity{UserId: int(userId), Role: types.Role(role)}, nil
}

// BearerToken finds the session token on a request. It checks the
// Authorization header, then the token cookie, then the token query
// parameter, which browsers need for WebSocket handshakes.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}

	if c, err := r.Cookie(TokenCookieKey); err == nil && c.Value != "" {
		return c.Value
	}

	return r.URL.Query().Get(TokenCookieKey)
}
