package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRoles(t *testing.T) {
	assert := assert.New(t)

	normalized := NormalizeRoles([]string{" Pipe Fitter ", "pipe fitter", "Driver", "", "  "})
	assert.Equal([]string{"pipe fitter", "driver"}, normalized)
}

func TestNormalizeRolesEmpty(t *testing.T) {
	assert := assert.New(t)
	assert.Empty(NormalizeRoles(nil))
}

func TestNormalizeEmailAddress(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("sara@example.org", NormalizeEmailAddress("  Sara@Example.ORG "))
}

func TestValidateEmailAddress(t *testing.T) {
	assert := assert.New(t)
	assert.NoError(ValidateEmailAddress("sara@example.org"))
	assert.Error(ValidateEmailAddress("not-an-email"))
}
