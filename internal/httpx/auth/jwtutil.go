package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"fiber-ent-blog/internal/blog"
	"fiber-ent-blog/internal/config"
	"fiber-ent-blog/internal/httpx/mw"
	"fiber-ent-blog/internal/store"
)

// Claims represents JWT claims used by this service. Subject is the user id.
type Claims struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

type tokenKeys struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
}

var errMissingRSAKeys = errors.New("RS256 needs JWT_RS_PRIVATE_KEY and JWT_RS_PUBLIC_KEY")

func loadKeys(cfg *config.Config) (*tokenKeys, error) {
	switch cfg.JWT.Algo {
	case "HS256", "":
		secret := []byte(cfg.JWT.HSSecret)
		return &tokenKeys{method: jwt.SigningMethodHS256, signKey: secret, verifyKey: secret}, nil
	case "RS256":
		if cfg.JWT.RSPrivateKey == "" || cfg.JWT.RSPublicKey == "" {
			return nil, errMissingRSAKeys
		}
		priv, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.JWT.RSPrivateKey))
		if err != nil {
			return nil, fmt.Errorf("rsa private key: %w", err)
		}
		pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.JWT.RSPublicKey))
		if err != nil {
			return nil, fmt.Errorf("rsa public key: %w", err)
		}
		return &tokenKeys{method: jwt.SigningMethodRS256, signKey: priv, verifyKey: pub}, nil
	default:
		return nil, fmt.Errorf("unsupported JWT_ALGO %q", cfg.JWT.Algo)
	}
}

// RolesFor returns the roles carried in tokens issued to u.
func RolesFor(u *store.User) []string {
	if u.IsStaff {
		return []string{blog.RoleStaff}
	}
	return nil
}

// SignAccess issues a session token for u.
func SignAccess(cfg *config.Config, u *store.User) (string, string, error) {
	keys, err := loadKeys(cfg)
	if err != nil {
		return "", "", err
	}
	now := time.Now().UTC()
	jti := uuid.NewString()
	claims := &Claims{
		Username: u.Username,
		Roles:    RolesFor(u),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.JWT.Issuer,
			Audience:  jwt.ClaimStrings{cfg.JWT.Audience},
			Subject:   strconv.FormatInt(u.ID, 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.JWT.AccessMin) * time.Minute)),
		},
	}
	token := jwt.NewWithClaims(keys.method, claims)
	s, err := token.SignedString(keys.signKey)
	return s, jti, err
}

// ParseAndValidate verifies a token string and returns claims.
func ParseAndValidate(cfg *config.Config, tokenStr string) (*Claims, error) {
	keys, err := loadKeys(cfg)
	if err != nil {
		return nil, err
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{keys.method.Alg()})}
	if cfg.JWT.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWT.Issuer))
	}
	if cfg.JWT.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.JWT.Audience))
	}
	tok, err := jwt.NewParser(opts...).ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (interface{}, error) { return keys.verifyKey, nil })
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

// Parser adapts ParseAndValidate for mw.JWTMiddleware.
func Parser(cfg *config.Config) mw.TokenParser {
	return func(token string) (*blog.Principal, error) {
		claims, err := ParseAndValidate(cfg, token)
		if err != nil {
			return nil, err
		}
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return nil, errors.New("invalid subject")
		}
		return &blog.Principal{UserID: id, Username: claims.Username, Roles: claims.Roles}, nil
	}
}

// SetAccessCookie stores the session token as an HttpOnly cookie.
func SetAccessCookie(c *fiber.Ctx, cfg *config.Config, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.Auth.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: "Lax",
		Path:     "/",
		MaxAge:   cfg.JWT.AccessMin * 60,
	})
}

// ClearAccessCookie clears the session cookie.
func ClearAccessCookie(c *fiber.Ctx, cfg *config.Config) {
	c.Cookie(&fiber.Cookie{Name: cfg.Auth.CookieName, Value: "", MaxAge: -1, Path: "/"})
}
