package engine

// Op tags an incoming batch item with its requested mutation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Mode selects the batch failure semantics.
type Mode string

const (
	// ModeIndependent processes items in isolation: one item's failure
	// never blocks or rolls back unrelated items.
	ModeIndependent Mode = "independent"

	// ModeAtomic rejects the entire batch if any single item fails; no
	// partial effects are observable by subsequent reads.
	ModeAtomic Mode = "atomic"
)

// BatchItem is one record in an incoming batch. Doc carries the wire
// document for creates and updates; deletes may instead target a server
// id directly.
type BatchItem struct {
	Op       Op
	Doc      map[string]any
	ServerID *int64
	LocalID  *int64
}

// Outcome is the per-item verdict.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// Action records which mutation actually happened; a create that
// matched an existing identity key is reported as an update.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
	ActionNone    Action = ""
)

// ItemResult correlates one batch item's outcome back to the caller's
// own identifiers.
type ItemResult struct {
	LocalID  *int64  `json:"localId,omitempty"`
	ServerID *int64  `json:"serverId,omitempty"`
	Op       Op      `json:"op"`
	Outcome  Outcome `json:"outcome"`
	Action   Action  `json:"action,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Summary aggregates a batch's outcomes.
type Summary struct {
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Deleted    int `json:"deleted"`
	Errors     int `json:"errors"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Status is the HTTP-style tri-state batch verdict, distinguishable
// without parsing free-text messages.
type Status string

const (
	StatusFull    Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// BatchResult is the engine's output for one applied batch.
type BatchResult struct {
	PerItem []ItemResult `json:"results"`
	Summary Summary      `json:"summary"`
	Status  Status       `json:"status"`
}

func (r *BatchResult) finalize() {
	for _, item := range r.PerItem {
		if item.Outcome == OutcomeError {
			r.Summary.Errors++
			continue
		}
		switch item.Action {
		case ActionCreated:
			r.Summary.Created++
		case ActionUpdated:
			r.Summary.Updated++
		case ActionDeleted:
			r.Summary.Deleted++
		}
	}
	r.Summary.Successful = r.Summary.Created + r.Summary.Updated + r.Summary.Deleted
	r.Summary.Failed = r.Summary.Errors

	switch {
	case r.Summary.Errors == 0:
		r.Status = StatusFull
	case r.Summary.Successful == 0:
		r.Status = StatusFailed
	default:
		r.Status = StatusPartial
	}
}
