package transform

import "strings"

// skillVocabulary is the fixed matching vocabulary. Text is matched
// case-insensitively on substrings; the canonical spelling listed here
// is what gets stored.
var skillVocabulary = []string{
	"Go", "Golang", "Python", "Java", "JavaScript", "TypeScript", "Ruby",
	"PHP", "C#", "C++", "Rust", "Kotlin", "Swift", "Scala", "SQL",
	"React", "Vue", "Angular", "Node.js", "Django", "Rails", "Spring",
	"Docker", "Kubernetes", "Terraform", "AWS", "Azure", "GCP",
	"PostgreSQL", "MySQL", "MongoDB", "Redis", "Elasticsearch", "Kafka",
	"RabbitMQ", "GraphQL", "REST", "gRPC", "Microservices", "CI/CD", "Git",
	"Machine Learning", "Data Science", "DevOps", "Agile", "Scrum",
	"Project Management", "Stakeholder Management", "Leadership",
	"Recruitment", "Talent Acquisition", "Sourcing", "Onboarding",
	"Account Management", "Business Development", "Sales", "Marketing",
}

// ExtractSkills scans free text for vocabulary skills and returns their
// canonical spellings in vocabulary order.
func ExtractSkills(text string) []string {
	if text == "" {
		return nil
	}

	textLower := strings.ToLower(text)
	var skills []string
	for _, skill := range skillVocabulary {
		if strings.Contains(textLower, strings.ToLower(skill)) {
			skills = append(skills, skill)
		}
	}
	return skills
}

// MergeSkills merges skill lists deduplicating case-insensitively.
// The first spelling encountered wins, so source-provided skills should
// be passed before extracted ones.
func MergeSkills(lists ...[]string) []string {
	seen := make(map[string]bool)
	merged := []string{}

	for _, list := range lists {
		for _, skill := range list {
			skill = strings.TrimSpace(skill)
			if skill == "" {
				continue
			}
			key := strings.ToLower(skill)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, skill)
		}
	}
	return merged
}
