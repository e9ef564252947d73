package storage

import (
	"errors"

	"idp-hq/assess/pkg/evaluation"
)

var allStatuses = []evaluation.Status{
	evaluation.StatusPending,
	evaluation.StatusQueued,
	evaluation.StatusRunning,
	evaluation.StatusDone,
	evaluation.StatusError,
}

// sourcesOf returns the statuses a run may move to `to` from.
func sourcesOf(to evaluation.Status) []evaluation.Status {
	var out []evaluation.Status
	for _, from := range allStatuses {
		if evaluation.CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

var errStoreClosed = errors.New("store is closed")
