package models

import (
	"fmt"
	"strings"
)

// EventType identifies an inbound ATS webhook event, formatted as
// "resource.action".
type EventType string

const (
	JobCreated       EventType = "job.created"
	JobUpdated       EventType = "job.updated"
	JobDeleted       EventType = "job.deleted"
	CandidateCreated EventType = "candidate.created"
	CandidateUpdated EventType = "candidate.updated"
	CandidateDeleted EventType = "candidate.deleted"
)

// AllEventTypes lists every event we subscribe to, as the ATS expects
// them in a webhook registration.
func AllEventTypes() []string {
	return []string{
		string(JobCreated),
		string(JobUpdated),
		string(JobDeleted),
		string(CandidateCreated),
		string(CandidateUpdated),
		string(CandidateDeleted),
	}
}

// ParseEventType parses a string into an EventType.
// Returns an error if the event type is unknown.
func ParseEventType(name string) (EventType, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	validTypes := []EventType{
		JobCreated,
		JobUpdated,
		JobDeleted,
		CandidateCreated,
		CandidateUpdated,
		CandidateDeleted,
	}

	for _, eventType := range validTypes {
		if string(eventType) == name {
			return eventType, nil
		}
	}

	return "", fmt.Errorf("unknown event type: %s", name)
}

// Resource returns the resource half of the event type ("job", "candidate").
func (e EventType) Resource() string {
	parts := strings.SplitN(string(e), ".", 2)
	return parts[0]
}

// Action returns the action half of the event type ("created", "updated", "deleted").
func (e EventType) Action() string {
	parts := strings.SplitN(string(e), ".", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// IsDeletion reports whether the event soft-deletes its resource.
func (e EventType) IsDeletion() bool {
	return e.Action() == "deleted"
}
