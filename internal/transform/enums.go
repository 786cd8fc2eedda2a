package transform

import "strings"

// Defaults applied when a source value is missing or unknown.
const (
	DefaultEmploymentType  = "full-time"
	DefaultSeniority       = "mid"
	DefaultJobStatus       = "open"
	DefaultCandidateStatus = "active"
	DefaultSalaryPeriod    = "annual"
	DefaultPlacementStatus = "completed"
)

var employmentTypes = map[string]string{
	"full_time":  "full-time",
	"full-time":  "full-time",
	"fulltime":   "full-time",
	"permanent":  "full-time",
	"part_time":  "part-time",
	"part-time":  "part-time",
	"parttime":   "part-time",
	"casual":     "part-time",
	"contract":   "contract",
	"contractor": "contract",
	"freelance":  "contract",
	"temp":       "contract",
	"temporary":  "contract",
	"internship": "internship",
	"intern":     "internship",
}

var seniorities = map[string]string{
	"entry":        "junior",
	"entry_level":  "junior",
	"graduate":     "junior",
	"junior":       "junior",
	"mid":          "mid",
	"mid_level":    "mid",
	"mid-level":    "mid",
	"intermediate": "mid",
	"senior":       "senior",
	"sr":           "senior",
	"lead":         "lead",
	"principal":    "lead",
	"staff":        "lead",
	"director":     "executive",
	"vp":           "executive",
	"executive":    "executive",
	"c_level":      "executive",
}

var jobStatuses = map[string]string{
	"open":      "open",
	"active":    "open",
	"published": "open",
	"live":      "open",
	"closed":    "closed",
	"filled":    "closed",
	"cancelled": "closed",
	"deleted":   "closed",
	"archived":  "closed",
	"draft":     "draft",
	"pending":   "draft",
	"paused":    "paused",
	"on_hold":   "paused",
	"on-hold":   "paused",
	"hold":      "paused",
}

var candidateStatuses = map[string]string{
	"active":         "active",
	"available":      "active",
	"new":            "active",
	"placed":         "active",
	"inactive":       "inactive",
	"withdrawn":      "inactive",
	"do_not_contact": "inactive",
	"deleted":        "inactive",
	"archived":       "inactive",
}

var salaryPeriods = map[string]string{
	"annual":    "annual",
	"annually":  "annual",
	"year":      "annual",
	"yearly":    "annual",
	"per_year":  "annual",
	"pa":        "annual",
	"monthly":   "monthly",
	"month":     "monthly",
	"per_month": "monthly",
	"daily":     "daily",
	"day":       "daily",
	"per_day":   "daily",
	"hourly":    "hourly",
	"hour":      "hourly",
	"per_hour":  "hourly",
}

var placementStatuses = map[string]string{
	"active":      "active",
	"current":     "active",
	"ongoing":     "active",
	"completed":   "completed",
	"finished":    "completed",
	"ended":       "completed",
	"terminated":  "terminated",
	"cancelled":   "terminated",
	"ended_early": "terminated",
	"upcoming":    "upcoming",
	"pending":     "upcoming",
	"scheduled":   "upcoming",
}

// deletedStatuses are source statuses that mean the record was removed
// upstream; they trigger a local soft delete during reconciliation.
var deletedStatuses = map[string]bool{
	"deleted":  true,
	"archived": true,
	"removed":  true,
}

// lookup normalizes a raw enum value through a table. Unknown and empty
// values map to the fallback, never to an error.
func lookup(table map[string]string, raw, fallback string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return fallback
	}
	if mapped, ok := table[key]; ok {
		return mapped
	}
	return fallback
}

func NormalizeEmploymentType(raw string) string {
	return lookup(employmentTypes, raw, DefaultEmploymentType)
}

func NormalizeSeniority(raw string) string {
	return lookup(seniorities, raw, DefaultSeniority)
}

func NormalizeJobStatus(raw string) string {
	return lookup(jobStatuses, raw, DefaultJobStatus)
}

func NormalizeCandidateStatus(raw string) string {
	return lookup(candidateStatuses, raw, DefaultCandidateStatus)
}

func NormalizeSalaryPeriod(raw string) string {
	return lookup(salaryPeriods, raw, DefaultSalaryPeriod)
}

func NormalizePlacementStatus(raw string) string {
	return lookup(placementStatuses, raw, DefaultPlacementStatus)
}

// IsDeletedStatus reports whether a raw source status marks the record
// as removed upstream.
func IsDeletedStatus(raw string) bool {
	return deletedStatuses[strings.ToLower(strings.TrimSpace(raw))]
}
