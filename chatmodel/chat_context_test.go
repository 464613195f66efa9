package chatmodel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatContext_Basics(t *testing.T) {
	t.Parallel()
	c := NewChatContext("cid")
	require.NotNil(t, c)
	assert.Equal(t, "cid", c.GetChatID())

	run := c.RunID()
	assert.NotEmpty(t, run)
	next := c.NewRun()
	assert.NotEqual(t, run, next)
	assert.Equal(t, next, c.RunID())

	val, ok := c.GetMetadata("not-found")
	assert.Nil(t, val)
	assert.False(t, ok)
	c.SetMetadata("foo", 1)
	v, ok := c.GetMetadata("foo")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestNewChatContext_DefaultIDs(t *testing.T) {
	t.Parallel()
	c1 := NewChatContext("")
	c2 := NewChatContext("")
	assert.NotEmpty(t, c1.GetChatID())
	assert.NotEqual(t, c1.GetChatID(), c2.GetChatID())
}

func TestChatContext_FromContext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert.Nil(t, GetChatContext(ctx))
	_, err := GetChatID(ctx)
	assert.ErrorIs(t, err, ErrInvalidChatContext)

	c := NewChatContext("chat1")
	ctx = WithChatContext(ctx, c)
	assert.Same(t, c, GetChatContext(ctx))

	id, err := GetChatID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "chat1", id)
}
