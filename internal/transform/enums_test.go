package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmploymentType(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"full_time", "full-time"},
		{"Permanent", "full-time"},
		{"PART-TIME", "part-time"},
		{"casual", "part-time"},
		{"contractor", "contract"},
		{"temp", "contract"},
		{"intern", "internship"},
		{"", "full-time"},
		{"gibberish", "full-time"},
		{"  contract  ", "contract"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeEmploymentType(tt.raw), "raw=%q", tt.raw)
	}
}

func TestNormalizeSeniority(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"entry_level", "junior"},
		{"graduate", "junior"},
		{"intermediate", "mid"},
		{"SR", "senior"},
		{"principal", "lead"},
		{"staff", "lead"},
		{"VP", "executive"},
		{"", "mid"},
		{"unknown", "mid"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeSeniority(tt.raw), "raw=%q", tt.raw)
	}
}

func TestNormalizeJobStatus(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"published", "open"},
		{"live", "open"},
		{"filled", "closed"},
		{"archived", "closed"},
		{"pending", "draft"},
		{"on_hold", "paused"},
		{"", "open"},
		{"nonsense", "open"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeJobStatus(tt.raw), "raw=%q", tt.raw)
	}
}

func TestNormalizeCandidateStatus(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"available", "active"},
		{"placed", "active"},
		{"withdrawn", "inactive"},
		{"do_not_contact", "inactive"},
		{"", "active"},
		{"whatever", "active"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeCandidateStatus(tt.raw), "raw=%q", tt.raw)
	}
}

func TestNormalizeSalaryPeriod(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"yearly", "annual"},
		{"pa", "annual"},
		{"per_month", "monthly"},
		{"day", "daily"},
		{"per_hour", "hourly"},
		{"", "annual"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeSalaryPeriod(tt.raw), "raw=%q", tt.raw)
	}
}

func TestNormalizePlacementStatus(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"ongoing", "active"},
		{"finished", "completed"},
		{"ended_early", "terminated"},
		{"scheduled", "upcoming"},
		{"", "completed"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizePlacementStatus(tt.raw), "raw=%q", tt.raw)
	}
}

func TestIsDeletedStatus(t *testing.T) {
	assert.True(t, IsDeletedStatus("deleted"))
	assert.True(t, IsDeletedStatus("ARCHIVED"))
	assert.True(t, IsDeletedStatus(" removed "))
	assert.False(t, IsDeletedStatus("closed"))
	assert.False(t, IsDeletedStatus(""))
}
