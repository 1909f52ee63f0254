package api

import "context"

// Remover deletes items by id. ContentService and the IPC client both
// satisfy it.
type Remover interface {
	Remove(ctx context.Context, ids []int64) (int64, error)
}

// Removal is the outcome for one requested id.
type Removal struct {
	ID      int64 `json:"id"`
	Removed bool  `json:"removed"`
}

// RemovalReport summarizes a batch removal.
type RemovalReport struct {
	Removed int64     `json:"removed"`
	Items   []Removal `json:"items"`
}

// Missing returns the ids that did not exist.
func (r RemovalReport) Missing() []int64 {
	var out []int64
	for _, item := range r.Items {
		if !item.Removed {
			out = append(out, item.ID)
		}
	}
	return out
}

// ReportRemovals removes ids one by one so the caller can tell which
// existed. Repeated ids are only attempted once.
func ReportRemovals(ctx context.Context, remover Remover, ids []int64) (RemovalReport, error) {
	report := RemovalReport{Items: make([]Removal, 0, len(ids))}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		n, err := remover.Remove(ctx, []int64{id})
		if err != nil {
			return report, err
		}
		report.Removed += n
		report.Items = append(report.Items, Removal{ID: id, Removed: n > 0})
	}
	return report, nil
}
