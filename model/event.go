package model

import "time"

// EventType identifies a ledger event for subscribers.
type EventType string

const (
	EventProjectCreated      EventType = "project_created"
	EventCollaboratorInvited EventType = "collaborator_invited"
	EventSplitRebalanced     EventType = "split_rebalanced"
	EventTrackStatusChanged  EventType = "track_status_changed"
)

// Event is emitted to the notification seam after each mutation. Delivery
// is at-least-once; consumers deduplicate by ID.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ProjectID string      `json:"projectId"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
