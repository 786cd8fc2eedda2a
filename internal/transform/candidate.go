package transform

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/hirelens/ats-sync-svc/internal/ats"
	"github.com/hirelens/ats-sync-svc/internal/models"
)

// Candidate converts an ATS candidate bundle into the locally stored
// record. Sub-resources missing from the bundle become empty defaults.
// New records start with conservative privacy prefs and enrichment
// pending; the store keeps both untouched on updates.
func Candidate(tenantID uuid.UUID, bundle ats.CandidateBundle, now time.Time) models.Candidate {
	src := bundle.Candidate

	// Skill scanning covers the summary and every experience description.
	var scanText strings.Builder
	scanText.WriteString(src.Summary)
	for _, exp := range bundle.Experience {
		scanText.WriteString("\n")
		scanText.WriteString(exp.Description)
	}

	experience := make([]models.ExperienceEntry, 0, len(bundle.Experience))
	for _, exp := range bundle.Experience {
		entry := models.ExperienceEntry{
			Title:       exp.Title,
			Company:     exp.Company,
			Location:    exp.Location,
			StartDate:   exp.StartDate,
			EndDate:     exp.EndDate,
			Current:     exp.Current,
			Description: Paragraphs(exp.Description),
		}

		// Extracted bullet lists fill in only when the source carries no
		// structured lists of its own.
		sections := ExtractListSections(exp.Description)
		entry.Responsibilities = exp.Responsibilities
		if len(entry.Responsibilities) == 0 {
			entry.Responsibilities = sections.Responsibilities
		}
		entry.Achievements = exp.Achievements
		if len(entry.Achievements) == 0 {
			entry.Achievements = sections.Achievements
		}

		experience = append(experience, entry)
	}

	education := make([]models.EducationEntry, 0, len(bundle.Education))
	for _, edu := range bundle.Education {
		education = append(education, models.EducationEntry{
			Institution: edu.Institution,
			Degree:      edu.Degree,
			Field:       edu.Field,
			StartYear:   edu.StartYear,
			EndYear:     edu.EndYear,
		})
	}

	placements := make([]models.PlacementEntry, 0, len(bundle.Placements))
	for _, placement := range bundle.Placements {
		placements = append(placements, models.PlacementEntry{
			JobTitle:  placement.JobTitle,
			Company:   placement.Company,
			Status:    NormalizePlacementStatus(placement.Status),
			StartDate: placement.StartDate,
			EndDate:   placement.EndDate,
		})
	}

	resumeURL := ""
	if bundle.Resume != nil {
		resumeURL = bundle.Resume.URL
	}

	return models.Candidate{
		TenantID:      tenantID,
		SourceID:      src.ID,
		FirstName:     src.FirstName,
		LastName:      src.LastName,
		Email:         src.Email,
		Phone:         src.Phone,
		Headline:      src.Headline,
		SummaryBlocks: datatypes.NewJSONSlice(Paragraphs(src.Summary)),
		Skills:        datatypes.NewJSONSlice(MergeSkills(src.Skills, ExtractSkills(scanText.String()))),
		Experience:    datatypes.NewJSONSlice(experience),
		Education:     datatypes.NewJSONSlice(education),
		Placements:    datatypes.NewJSONSlice(placements),
		ResumeURL:     resumeURL,
		Status:        NormalizeCandidateStatus(src.Status),
		PrivacyPrefs:  datatypes.NewJSONType(models.DefaultPrivacyPrefs()),
		AIEnrichment:  datatypes.NewJSONType(models.AIEnrichment{Status: models.EnrichmentPending}),
		LastSynced:    now,
	}
}
