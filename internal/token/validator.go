package token

import "fmt"

// Validator checks tokens against an expected family on top of the codec's
// structural, signature and expiry checks.
type Validator struct {
	codec Codec
}

// NewValidator constructs a Validator over the given codec.
func NewValidator(codec Codec) Validator {
	return Validator{codec: codec}
}

// ValidateAccess accepts only access tokens.
func (v Validator) ValidateAccess(tokenString string) (Claims, error) {
	return v.validate(tokenString, TypeAccess)
}

// ValidateRefresh accepts only refresh tokens.
func (v Validator) ValidateRefresh(tokenString string) (Claims, error) {
	return v.validate(tokenString, TypeRefresh)
}

func (v Validator) validate(tokenString, expected string) (Claims, error) {
	claims, err := v.codec.Decode(tokenString)
	if err != nil {
		return Claims{}, err
	}
	if claims.Type != expected {
		return Claims{}, newError(KindWrongType, fmt.Errorf("expected %s token, got %q", expected, claims.Type))
	}
	// Subject parsing is the validator's job: a bad sub fails validation
	// instead of leaking a parse error to the caller.
	if _, err := claims.UserID(); err != nil {
		return Claims{}, err
	}
	return claims, nil
}
