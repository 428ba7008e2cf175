package domain

// EventType represents the type of domain event
type EventType string

// Event types
const (
	EventQueryChanged     EventType = "QueryChanged"
	EventSearchStarted    EventType = "SearchStarted"
	EventCandidatesFound  EventType = "CandidatesFound"
	EventSearchFinished   EventType = "SearchFinished"
	EventSearchFailed     EventType = "SearchFailed"
	EventDatabaseResolved EventType = "DatabaseResolved"
	EventIndexRebuilt     EventType = "IndexRebuilt"
	EventError            EventType = "Error"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	Type() EventType
}

// QueryChangedEvent is emitted whenever the live input changes meaningfully
type QueryChangedEvent struct {
	Raw        string
	SearchType SearchType
}

func (e QueryChangedEvent) Type() EventType { return EventQueryChanged }

// SearchStartedEvent is emitted when a subprocess has been launched for a session
type SearchStartedEvent struct {
	Session    uint64
	Pattern    string
	SearchType SearchType
}

func (e SearchStartedEvent) Type() EventType { return EventSearchStarted }

// CandidatesFoundEvent carries a batch of parsed candidates, in subprocess
// write order. Session identifies the originating search; consumers must drop
// batches from superseded sessions.
type CandidatesFoundEvent struct {
	Session    uint64
	Candidates []Candidate
}

func (e CandidatesFoundEvent) Type() EventType { return EventCandidatesFound }

// SearchFinishedEvent is emitted when a subprocess exits normally
type SearchFinishedEvent struct {
	Session uint64
	Total   int
}

func (e SearchFinishedEvent) Type() EventType { return EventSearchFinished }

// SearchFailedEvent is emitted when a subprocess could not be started.
// Recoverable: the interaction stays open and the user may retype.
type SearchFailedEvent struct {
	Session uint64
	Reason  string
	Err     error
}

func (e SearchFailedEvent) Type() EventType { return EventSearchFailed }

// DatabaseResolvedEvent is emitted once the index file has been located
type DatabaseResolvedEvent struct {
	Location DatabaseLocation
}

func (e DatabaseResolvedEvent) Type() EventType { return EventDatabaseResolved }

// IndexRebuiltEvent is emitted when the external indexer rewrites the
// database file; the current query should be re-run against the new index.
type IndexRebuiltEvent struct {
	Path string
}

func (e IndexRebuiltEvent) Type() EventType { return EventIndexRebuilt }

// ErrorEvent is emitted when an error occurs
type ErrorEvent struct {
	Message string
	Err     error
}

func (e ErrorEvent) Type() EventType { return EventError }
