package dispatch

import "context"

// Message is one outbound notification payload. NotificationID and
// DisasterID travel with the message so delivery results can be attributed
// back to the originating notification row.
type Message struct {
	ID             string
	Recipient      string
	Subject        string
	Body           string
	NotificationID string
	DisasterID     string
}

// Failure describes a single message the transport could not deliver.
type Failure struct {
	ID     string
	Reason string
}

// BatchResult reports per-message outcomes for one transport call.
type BatchResult struct {
	Succeeded []string
	Failed    []Failure
}

// Merge folds another result into this one.
func (r *BatchResult) Merge(other BatchResult) {
	r.Succeeded = append(r.Succeeded, other.Succeeded...)
	r.Failed = append(r.Failed, other.Failed...)
}

// Transport delivers a window of at most BatchSize messages in one call.
// Per-message delivery problems are reported through BatchResult; a
// returned error means the call itself failed and nothing in the window
// can be assumed delivered.
type Transport interface {
	SendBatch(ctx context.Context, messages []Message) (BatchResult, error)
}
