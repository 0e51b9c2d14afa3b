// Package token implements the signed claim-set codec plus the issuer and
// validator built on top of it. Everything here is a pure function over the
// configured secret: no shared mutable state, safe under unbounded
// concurrency.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token families. The type claim is immutable post-creation and determines
// which validator accepts the token.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

const signingAlgorithm = "HS256"

// Claims is the closed claim set carried by every token. Optional fields
// are omitted from the wire format when zero.
type Claims struct {
	Type        string `json:"type"`
	IsSuperuser bool   `json:"is_superuser,omitempty"`
	Imp         bool   `json:"imp,omitempty"`
	ImpBy       int64  `json:"imp_by,omitempty"`
	ImpSID      string `json:"imp_sid,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim into a positive principal id.
func (c Claims) UserID() (int64, error) {
	sub := strings.TrimSpace(c.Subject)
	if sub == "" {
		return 0, newError(KindSubjectInvalid, errors.New("subject missing"))
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, newError(KindSubjectInvalid, fmt.Errorf("subject %q is not a positive integer", sub))
	}
	return id, nil
}

// Codec encodes and decodes signed, expiring claim sets using a symmetric
// secret. The zero value is unusable; construct with NewCodec.
type Codec struct {
	secret   []byte
	issuer   string
	audience string
}

// NewCodec builds a codec. Issuer and audience are optional: the issuer
// claim is stamped and checked only when configured, audience verification
// is enabled only when an expected audience is configured.
func NewCodec(secret, issuer, audience string) (Codec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return Codec{}, errors.New("token: signing secret is required")
	}
	return Codec{
		secret:   []byte(secret),
		issuer:   strings.TrimSpace(issuer),
		audience: strings.TrimSpace(audience),
	}, nil
}

// Encode signs the claim set with HMAC-SHA256 and returns the compact
// serialization (header.claims.signature).
func (c Codec) Encode(claims Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Decode verifies signature, structure and expiry, plus issuer and audience
// when configured. All failures surface as *Error.
func (c Codec) Decode(tokenString string) (Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return Claims{}, newError(KindMalformed, errors.New("empty token"))
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingAlgorithm}),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	if c.audience != "" {
		opts = append(opts, jwt.WithAudience(c.audience))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return Claims{}, classifyParseError(err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, newError(KindClaimsInvalid, errors.New("unexpected claim set"))
	}
	return *claims, nil
}

func classifyParseError(err error) *Error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return newError(KindExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return newError(KindExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return newError(KindSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newError(KindMalformed, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return newError(KindClaimsInvalid, err)
	default:
		return newError(KindMalformed, err)
	}
}

func (c Codec) baseClaims(subject int64, tokenType string, now time.Time, ttl time.Duration) Claims {
	now = now.UTC()
	claims := Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(subject, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if c.issuer != "" {
		claims.Issuer = c.issuer
	}
	if c.audience != "" {
		claims.Audience = jwt.ClaimStrings{c.audience}
	}
	return claims
}
