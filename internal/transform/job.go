package transform

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/hirelens/ats-sync-svc/internal/ats"
	"github.com/hirelens/ats-sync-svc/internal/models"
	"github.com/hirelens/ats-sync-svc/internal/utils"
)

// Job converts an ATS job into the locally stored record. It is pure:
// missing fields map to defaults and it never fails.
func Job(tenantID uuid.UUID, src ats.SourceJob, now time.Time) models.Job {
	blocks := Paragraphs(src.Description)

	// Extract bullet lists only when the source has no structured lists.
	responsibilities := src.Responsibilities
	if len(responsibilities) == 0 {
		responsibilities = ExtractListSections(src.Description).Responsibilities
	}

	skills := MergeSkills(src.Skills, ExtractSkills(src.Description))

	slug := utils.Slugify(src.Title)
	if slug == "" {
		slug = strings.ToLower(src.ID)
	}

	return models.Job{
		TenantID:          tenantID,
		SourceID:          src.ID,
		Title:             src.Title,
		Slug:              slug,
		Status:            NormalizeJobStatus(src.Status),
		EmploymentType:    NormalizeEmploymentType(src.EmploymentType),
		Seniority:         NormalizeSeniority(src.Seniority),
		LocationCity:      src.Location.City,
		LocationCountry:   src.Location.Country,
		Remote:            src.Location.Remote,
		SalaryMin:         src.Salary.Min,
		SalaryMax:         src.Salary.Max,
		SalaryCurrency:    strings.ToUpper(strings.TrimSpace(src.Salary.Currency)),
		SalaryPeriod:      NormalizeSalaryPeriod(src.Salary.Period),
		DescriptionBlocks: datatypes.NewJSONSlice(blocks),
		Responsibilities:  datatypes.NewJSONSlice(emptyIfNil(responsibilities)),
		Requirements:      datatypes.NewJSONSlice(emptyIfNil(src.Requirements)),
		Skills:            datatypes.NewJSONSlice(skills),
		PostedAt:          src.PostedAt,
		LastSynced:        now,
	}
}

func emptyIfNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
