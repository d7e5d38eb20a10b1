//go:build unit

package ptr_test

import (
	"testing"

	"packsend-service/internal/pkg/ptr"

	"github.com/stretchr/testify/assert"
)

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 90, ptr.Coalesce(ptr.To(90), 0))
	assert.Equal(t, 0, ptr.Coalesce[int](nil, 0))
}

func TestNonEmpty(t *testing.T) {
	assert.Nil(t, ptr.NonEmpty("   "))
	assert.Equal(t, "Penrose depot", *ptr.NonEmpty(" Penrose depot "))
}
