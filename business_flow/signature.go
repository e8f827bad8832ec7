package businessflow

import (
	"crypto/subtle"
)

// SignatureValidator decides whether a client app may trigger calls.
// It is configured once at startup and safe for concurrent use.
type SignatureValidator struct {
	requireSignature bool
	allowed          [][]byte
	minLength        int
}

func NewSignatureValidator(requireSignature bool, allowed []string, minLength int) *SignatureValidator {
	list := make([][]byte, 0, len(allowed))
	for _, s := range allowed {
		if s == "" {
			continue
		}
		list = append(list, []byte(s))
	}
	return &SignatureValidator{
		requireSignature: requireSignature,
		allowed:          list,
		minLength:        minLength,
	}
}

// Validate compares against every allow-list entry so timing does not reveal which one matched
func (v *SignatureValidator) Validate(signature string) bool {
	if signature == "" {
		return false
	}
	if !v.requireSignature {
		return len(signature) >= v.minLength
	}

	candidate := []byte(signature)
	matched := 0
	for _, allowed := range v.allowed {
		matched |= subtle.ConstantTimeCompare(candidate, allowed)
	}
	return matched == 1
}
