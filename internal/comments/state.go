// Package comments implements threaded comments on jobs, papers and resources.
//
// Comment state graph:
//
//	ACTIVE ──► EDITED ──┐ (edits repeat while not deleted)
//	   │          │     │
//	   │          └─────┴──► SOFT_DELETED ──► HARD_DELETED
//	   └──────────────────────────────────────► HARD_DELETED
//
// A delete lands on SOFT_DELETED while the comment has active replies and on
// HARD_DELETED otherwise. SOFT_DELETED rows keep their place in the thread
// under a tombstone and are hard-deleted once their last live reply is gone.
// HARD_DELETED is terminal.
package comments

// State is the lifecycle position of a comment, derived from its flags.
type State string

const (
	StateActive      State = "active"
	StateEdited      State = "edited"
	StateSoftDeleted State = "soft_deleted"
	StateHardDeleted State = "hard_deleted"
)

// Tombstone replaces the content of a soft-deleted comment.
const Tombstone = "[This comment has been deleted]"

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[State][]State{
	StateActive:      {StateEdited, StateSoftDeleted, StateHardDeleted},
	StateEdited:      {StateEdited, StateSoftDeleted, StateHardDeleted},
	StateSoftDeleted: {StateHardDeleted},
	// HARD_DELETED is terminal
}

// IsTransitionAllowed reports whether from → to is permitted.
func IsTransitionAllowed(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StateOf derives the state of a stored comment.
func StateOf(c *Comment) State {
	switch {
	case c == nil:
		return StateHardDeleted
	case c.IsDeleted:
		return StateSoftDeleted
	case c.IsEdited:
		return StateEdited
	}
	return StateActive
}

// DeleteTarget is the state a delete moves a comment to, given how many
// active replies sit below it.
func DeleteTarget(activeDescendants int) State {
	if activeDescendants > 0 {
		return StateSoftDeleted
	}
	return StateHardDeleted
}
