package transform

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirelens/ats-sync-svc/internal/ats"
	"github.com/hirelens/ats-sync-svc/internal/models"
)

func TestCandidate(t *testing.T) {
	tenantID := uuid.New()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	bundle := ats.CandidateBundle{
		Candidate: ats.SourceCandidate{
			ID:        "cand-1",
			FirstName: "Ada",
			LastName:  "Alvarez",
			Email:     "ada@example.com",
			Phone:     "+49 30 1234",
			Headline:  "Backend engineer",
			Summary:   "Seasoned Go engineer.\n\nLoves distributed systems.",
			Skills:    []string{"Go"},
			Status:    "available",
		},
		Resume: &ats.SourceResume{URL: "https://files.example.com/cv.pdf"},
		Experience: []ats.SourceExperience{
			{
				Title:       "Staff Engineer",
				Company:     "Acme",
				StartDate:   "2020-01",
				Current:     true,
				Description: "Role summary\n\nResponsibilities:\n• Design APIs\n• Review code\n\nAchievements:\n• Cut latency 40%",
			},
		},
		Education: []ats.SourceEducation{
			{Institution: "TU Berlin", Degree: "BSc", Field: "CS", EndYear: "2014"},
		},
		Placements: []ats.SourcePlacement{
			{JobTitle: "Backend Engineer", Company: "Initech", Status: "ongoing"},
		},
	}

	candidate := Candidate(tenantID, bundle, now)

	assert.Equal(t, tenantID, candidate.TenantID)
	assert.Equal(t, "cand-1", candidate.SourceID)
	assert.Equal(t, "Ada", candidate.FirstName)
	assert.Equal(t, "active", candidate.Status)
	assert.Equal(t, "https://files.example.com/cv.pdf", candidate.ResumeURL)
	assert.Equal(t, []string{"Seasoned Go engineer.", "Loves distributed systems."}, []string(candidate.SummaryBlocks))
	assert.Equal(t, now, candidate.LastSynced)

	require.Len(t, candidate.Experience, 1)
	exp := candidate.Experience[0]
	assert.Equal(t, "Staff Engineer", exp.Title)
	assert.True(t, exp.Current)
	assert.Equal(t, []string{"Design APIs", "Review code"}, exp.Responsibilities)
	assert.Equal(t, []string{"Cut latency 40%"}, exp.Achievements)

	require.Len(t, candidate.Education, 1)
	assert.Equal(t, "TU Berlin", candidate.Education[0].Institution)

	require.Len(t, candidate.Placements, 1)
	assert.Equal(t, "active", candidate.Placements[0].Status)

	prefs := candidate.PrivacyPrefs.Data()
	assert.False(t, prefs.Searchable)
	assert.False(t, prefs.ShowContactInfo)

	enrichment := candidate.AIEnrichment.Data()
	assert.Equal(t, models.EnrichmentPending, enrichment.Status)
}

func TestCandidate_StructuredListsWin(t *testing.T) {
	bundle := ats.CandidateBundle{
		Candidate: ats.SourceCandidate{ID: "cand-2"},
		Experience: []ats.SourceExperience{
			{
				Title:            "Engineer",
				Description:      "Responsibilities:\n• From free text",
				Responsibilities: []string{"From the source"},
			},
		},
	}

	candidate := Candidate(uuid.New(), bundle, time.Now())

	require.Len(t, candidate.Experience, 1)
	assert.Equal(t, []string{"From the source"}, candidate.Experience[0].Responsibilities)
}

func TestCandidate_SkillsFromExperienceDescriptions(t *testing.T) {
	bundle := ats.CandidateBundle{
		Candidate: ats.SourceCandidate{
			ID:      "cand-3",
			Summary: "Generalist.",
		},
		Experience: []ats.SourceExperience{
			{Title: "SRE", Description: "Ran Kubernetes and Terraform day to day."},
		},
	}

	candidate := Candidate(uuid.New(), bundle, time.Now())

	assert.Contains(t, []string(candidate.Skills), "Kubernetes")
	assert.Contains(t, []string(candidate.Skills), "Terraform")
}

func TestCandidate_EmptyBundle(t *testing.T) {
	bundle := ats.CandidateBundle{
		Candidate: ats.SourceCandidate{ID: "cand-4"},
	}

	candidate := Candidate(uuid.New(), bundle, time.Now())

	assert.Equal(t, "cand-4", candidate.SourceID)
	assert.Equal(t, "active", candidate.Status)
	assert.Empty(t, candidate.ResumeURL)
	assert.Empty(t, []string(candidate.SummaryBlocks))
	assert.NotNil(t, []models.ExperienceEntry(candidate.Experience))
	assert.Empty(t, candidate.Experience)
	assert.Empty(t, candidate.Education)
	assert.Empty(t, candidate.Placements)
}
