package incidents

import "errors"

// Sentinel errors returned by the incidents service.
var (
	// ErrIncidentNotFound indicates the caller passed an id not present in
	// the collection. This is the one reported error among the transition
	// operations; validation failures and invalid transitions are no-ops.
	ErrIncidentNotFound = errors.New("incident not found")

	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = errors.New("invalid incident status")

	// ErrInvalidJudgment indicates an unknown judgment value.
	ErrInvalidJudgment = errors.New("invalid judgment")

	// ErrInvalidPriority indicates an unknown priority value.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrNotResolved indicates an attempt to close an incident that has not
	// been resolved first.
	ErrNotResolved = errors.New("incident is not resolved")

	// ErrSelfRelation indicates an attempt to relate an incident to itself.
	ErrSelfRelation = errors.New("incident cannot relate to itself")
)
