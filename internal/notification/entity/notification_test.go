package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMarkRead(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := Notification{ID: 1}

	read := n.MarkRead(first)
	assert.False(t, n.IsRead(), "original value is untouched")
	assert.True(t, read.IsRead())

	again := read.MarkRead(first.Add(time.Hour))
	assert.Equal(t, first, *again.ReadAt)
}
