package utils_test

import (
	"strings"
	"testing"

	"github.com/cameroncuttingedge/tic_tac_toe_online/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	assert.Len(t, utils.CodeAlphabet, 32)
	for _, c := range "IO01" {
		assert.NotContains(t, utils.CodeAlphabet, string(c))
	}

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := utils.GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, utils.CodeLength)
		for _, c := range code {
			require.True(t, strings.ContainsRune(utils.CodeAlphabet, c), "unexpected char %q in %s", c, code)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestNewConnectionID(t *testing.T) {
	a := utils.NewConnectionID()
	b := utils.NewConnectionID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}
