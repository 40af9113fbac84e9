package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRedisDB(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewRedisDB("redis://"+mr.Addr(), "", 0, zap.NewNop())
	require.NoError(t, err)
	defer rdb.Close()

	assert.NoError(t, rdb.Ping(context.Background()))
}

func TestNewRedisDBErrores(t *testing.T) {
	_, err := NewRedisDB("://sin-esquema", "", 0, zap.NewNop())
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisDB("redis://"+addr, "", 0, zap.NewNop())
	assert.Error(t, err)
}
