package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ms-marketplace/internal/utils"
)

func TestGenerateOrderID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := utils.GenerateOrderID()
		assert.Len(t, id, 8)
		for _, r := range id {
			isAlnum := (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
			assert.True(t, isAlnum, "unexpected character %q in id %s", r, id)
		}
		seen[id] = true
	}
	// 62^8 possibilities; 1000 draws colliding would point at a broken
	// generator, not bad luck.
	assert.Len(t, seen, 1000)
}
