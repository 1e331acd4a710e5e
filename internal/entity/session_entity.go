package entity

// SessionState is the lifecycle position of a session, derived from its artifacts.
type SessionState string

const (
	SessionStateCreated    SessionState = "CREATED"
	SessionStateScanned    SessionState = "SCANNED"
	SessionStateRejected   SessionState = "REJECTED"
	SessionStateSummarized SessionState = "SUMMARIZED"
)
