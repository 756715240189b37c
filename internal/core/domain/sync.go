package domain

import "time"

// CollectionResult reports one collection's reconciliation outcome. The four
// cycles are independent: a failed collection leaves its local state and
// dirty flags untouched while the others complete.
type CollectionResult struct {
	Collection Collection
	Pulled     int
	Pushed     int
	Persisted  bool
	Err        error
}

func (r CollectionResult) Failed() bool {
	return r.Err != nil
}

// SyncReport is the joined outcome of one full sync cycle.
type SyncReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []CollectionResult
}

// Failed returns the collections that did not reconcile.
func (r SyncReport) Failed() []CollectionResult {
	var failed []CollectionResult
	for _, res := range r.Results {
		if res.Failed() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Ok reports whether every collection reconciled.
func (r SyncReport) Ok() bool {
	return len(r.Failed()) == 0
}
