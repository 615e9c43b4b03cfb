package zatca

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidVATNumber(t *testing.T) {
	assert.True(t, ValidVATNumber("300000000000003"))
	assert.True(t, ValidVATNumber("310123456700003"))
	assert.False(t, ValidVATNumber("300000000000001"))
	assert.False(t, ValidVATNumber("100000000000003"))
	assert.False(t, ValidVATNumber("30000000000003"))
	assert.False(t, ValidVATNumber("3000000000000a3"))
	assert.False(t, ValidVATNumber(""))
}
