package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadinessCheck_NilPool(t *testing.T) {
	t.Parallel()

	c := ReadinessCheck(nil)

	assert.Equal(t, "postgres", c.Name())
	assert.EqualError(t, c.Check(context.Background()), "database pool is nil")
}

func TestNewPostgresPool_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewPostgresPool(context.Background(), nil)
	assert.EqualError(t, err, "database config cannot be nil")
}
