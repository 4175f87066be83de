package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsValid(t *testing.T) {
	id := New()
	assert.Len(t, id, 27)
	assert.True(t, Valid(id))
	assert.NotEqual(t, id, New())
}

func TestValidRejectsGarbage(t *testing.T) {
	for _, id := range []string{"", "abc", "../../etc/passwd", "507f1f77bcf86cd799439011"} {
		assert.False(t, Valid(id), id)
	}
}
