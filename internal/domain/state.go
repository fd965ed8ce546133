package domain

// LifecycleState is the commit state of a Location inside an editing session.
type LifecycleState int

const (
	// StateDraft means the record exists only in the session's working memory
	// (plus a hidden storage placeholder) and is invisible to other readers.
	StateDraft LifecycleState = iota
	// StatePersisted means the record is durably stored and visible to all readers.
	StatePersisted
	// StateDeleted is terminal: the record has been discarded or deleted.
	StateDeleted
)

func (s LifecycleState) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StatePersisted:
		return "persisted"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s LifecycleState) Terminal() bool {
	return s == StateDeleted
}
