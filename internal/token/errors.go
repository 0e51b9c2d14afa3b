package token

import "errors"

// ErrorKind discriminates token validation failures so callers can give
// differentiated feedback (a wrong-type token is not a forged one).
type ErrorKind int

const (
	KindMalformed ErrorKind = iota
	KindSignatureInvalid
	KindExpired
	KindClaimsInvalid
	KindWrongType
	KindSubjectInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindSignatureInvalid:
		return "signature invalid"
	case KindExpired:
		return "expired"
	case KindClaimsInvalid:
		return "claims invalid"
	case KindWrongType:
		return "wrong type"
	case KindSubjectInvalid:
		return "subject invalid"
	default:
		return "invalid"
	}
}

// Error is the single failure type produced by decoding and validation.
// All variants mean "re-authenticate" to the caller; none are retried.
type Error struct {
	Kind  ErrorKind
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return "token " + e.Kind.String() + ": " + e.cause.Error()
	}
	return "token " + e.Kind.String()
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

// AsError unwraps err into a *Error when it is one.
func AsError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsKind reports whether err is a token error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	te, ok := AsError(err)
	return ok && te.Kind == kind
}
