package scope

import "github.com/joelkehle/salesops-pie/internal/pie"

// snapshotTransitions is the closed forward-only table for snapshot status.
// Superseded is terminal and reachable from every other state.
var snapshotTransitions = map[pie.SnapshotStatus][]pie.SnapshotStatus{
	pie.SnapshotDraft:    {pie.SnapshotSent, pie.SnapshotSuperseded},
	pie.SnapshotSent:     {pie.SnapshotApproved, pie.SnapshotSuperseded},
	pie.SnapshotApproved: {pie.SnapshotSuperseded},
}

func validSnapshotStatus(s pie.SnapshotStatus) bool {
	switch s {
	case pie.SnapshotDraft, pie.SnapshotSent, pie.SnapshotApproved, pie.SnapshotSuperseded:
		return true
	}
	return false
}

// CanTransitionSnapshot reports whether a snapshot may move from one status
// to another through the normal (non-override) path.
func CanTransitionSnapshot(from, to pie.SnapshotStatus) bool {
	if from == to {
		return true
	}
	for _, allowed := range snapshotTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// changeOrderTransitions: requested fans out to approved or rejected; only
// approved can become applied. Applied and rejected are terminal.
var changeOrderTransitions = map[pie.ChangeOrderStatus][]pie.ChangeOrderStatus{
	pie.ChangeOrderRequested: {pie.ChangeOrderApproved, pie.ChangeOrderRejected},
	pie.ChangeOrderApproved:  {pie.ChangeOrderApplied},
}

func validChangeOrderStatus(s pie.ChangeOrderStatus) bool {
	switch s {
	case pie.ChangeOrderRequested, pie.ChangeOrderApproved, pie.ChangeOrderRejected, pie.ChangeOrderApplied:
		return true
	}
	return false
}

func CanTransitionChangeOrder(from, to pie.ChangeOrderStatus) bool {
	for _, allowed := range changeOrderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
