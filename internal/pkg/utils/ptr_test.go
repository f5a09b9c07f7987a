package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPtrDeref(t *testing.T) {
	assert.Equal(t, 3, Deref(Ptr(3)))
	assert.Equal(t, 0, Deref[int](nil))
	assert.Equal(t, "", Deref[string](nil))
	assert.True(t, Deref[decimal.Decimal](nil).IsZero())
}
