package businessflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignatureValidator(t *testing.T) {
	t.Run("NotRequired", func(t *testing.T) {
		v := NewSignatureValidator(false, nil, 10)
		assert.False(t, v.Validate(""))
		assert.False(t, v.Validate("short"))
		assert.False(t, v.Validate("123456789"))
		assert.True(t, v.Validate("1234567890"))
		assert.True(t, v.Validate(strings.Repeat("x", 64)))
	})

	t.Run("Required", func(t *testing.T) {
		v := NewSignatureValidator(true, []string{"FA+9qCX9VSu", "Zz1Yy2Xx3Ww"}, 10)
		assert.True(t, v.Validate("FA+9qCX9VSu"))
		assert.True(t, v.Validate("Zz1Yy2Xx3Ww"))
		assert.False(t, v.Validate(""))
		assert.False(t, v.Validate("FA+9qCX9VS"))
		assert.False(t, v.Validate("FA+9qCX9VSu "))
		assert.False(t, v.Validate("fa+9qcx9vsu"))
		assert.False(t, v.Validate("0123456789abcdef"))
	})

	t.Run("RequiredIgnoresLengthRule", func(t *testing.T) {
		v := NewSignatureValidator(true, []string{"abc"}, 10)
		assert.True(t, v.Validate("abc"))
	})

	t.Run("EmptyAllowListRejectsEverything", func(t *testing.T) {
		v := NewSignatureValidator(true, []string{""}, 1)
		assert.False(t, v.Validate(""))
		assert.False(t, v.Validate("anything-at-all"))
	})
}
