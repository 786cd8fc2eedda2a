package ats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, time.Duration(0), RetryDelay(1))
	assert.Equal(t, 1*time.Second, RetryDelay(2))
	assert.Equal(t, 3*time.Second, RetryDelay(3))

	// Out-of-range attempts clamp to the table bounds.
	assert.Equal(t, time.Duration(0), RetryDelay(0))
	assert.Equal(t, time.Duration(0), RetryDelay(-5))
	assert.Equal(t, 3*time.Second, RetryDelay(99))
}

func TestParseRetryAfter(t *testing.T) {
	delay, ok := ParseRetryAfter("30")
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, delay)

	delay, ok = ParseRetryAfter("0")
	assert.True(t, ok)
	assert.Equal(t, time.Duration(0), delay)

	_, ok = ParseRetryAfter("")
	assert.False(t, ok)

	_, ok = ParseRetryAfter("-5")
	assert.False(t, ok)

	// HTTP-date format is not handled.
	_, ok = ParseRetryAfter("Wed, 21 Oct 2025 07:28:00 GMT")
	assert.False(t, ok)
}
