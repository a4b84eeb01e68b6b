package domain

// EventKind tags the semantic reading of one CRM change notification.
type EventKind string

const (
	EventCreated      EventKind = "created"
	EventStageChanged EventKind = "stage_changed"
	EventIgnored      EventKind = "ignored"
)

// Event is built per webhook call and consumed immediately, never
// persisted. Deal is set for created and stage_changed; the stage id
// pair only for stage_changed.
type Event struct {
	Kind            EventKind
	Deal            *Deal
	PreviousStageID string
	CurrentStageID  string
}

func Ignored() Event {
	return Event{Kind: EventIgnored}
}

func Created(deal *Deal) Event {
	return Event{Kind: EventCreated, Deal: deal}
}

func StageChanged(deal *Deal, previousStageID, currentStageID string) Event {
	return Event{
		Kind:            EventStageChanged,
		Deal:            deal,
		PreviousStageID: previousStageID,
		CurrentStageID:  currentStageID,
	}
}
