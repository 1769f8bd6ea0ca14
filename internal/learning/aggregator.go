// Package learning derives counterparty statistics from the audit log and
// record history. Everything here is a cache over the log: a snapshot can be
// discarded and rebuilt at any time without losing information, and nothing
// in this package mutates records or audit entries.
package learning

import (
	"sort"

	"transferdesk/internal/audit"
	"transferdesk/internal/tracking"
)

// CounterpartyStats summarizes outcomes against one contra firm. Firms below
// the minimum submission threshold are flagged low-confidence rather than
// omitted.
type CounterpartyStats struct {
	ContraFirm       string   `json:"contra_firm"`
	TotalSubmissions int      `json:"total_submissions"`
	Completed        int      `json:"completed"`
	Failed           int      `json:"failed"`
	SuccessRate      float64  `json:"success_rate"`
	LowConfidence    bool     `json:"low_confidence"`
	TopIssueFields   []string `json:"top_issue_fields,omitempty"`
}

// FieldCount ranks one offending field path by frequency.
type FieldCount struct {
	Field string `json:"field"`
	Count int    `json:"count"`
}

// Snapshot is the aggregator's full output.
type Snapshot struct {
	PerCounterparty    []CounterpartyStats `json:"per_counterparty"`
	CommonIssueFields  []FieldCount        `json:"common_issue_fields"`
	OverallSuccessRate float64             `json:"overall_success_rate"`
}

// MinSubmissionsDefault is the threshold below which a firm's success rate
// is flagged low-confidence.
const MinSubmissionsDefault = 5

// Recompute replays the audit log and record history into a snapshot. Pure
// function of its inputs: identical inputs yield an identical snapshot, with
// deterministic ordering (firms by id; issue fields by count descending,
// ties by field path).
func Recompute(entries []audit.Entry, records []tracking.Record, minSubmissions int) Snapshot {
	if minSubmissions <= 0 {
		minSubmissions = MinSubmissionsDefault
	}

	type tally struct {
		completed int
		failed    int
		fields    map[string]int
	}
	firms := make(map[string]*tally)
	firmTally := func(firm string) *tally {
		t, ok := firms[firm]
		if !ok {
			t = &tally{fields: make(map[string]int)}
			firms[firm] = t
		}
		return t
	}

	// Terminal records attribute an outcome to their contra firm.
	firmByRecord := make(map[string]string, len(records))
	totalCompleted, totalFailed := 0, 0
	for _, r := range records {
		firmByRecord[r.ID] = r.Request.ContraFirm
		if !r.Status.Terminal() {
			continue
		}
		t := firmTally(r.Request.ContraFirm)
		if r.Status == tracking.StatusCompleted {
			t.completed++
			totalCompleted++
		} else {
			t.failed++
			totalFailed++
		}
	}

	// Rejection audit entries carry the offending field annotations.
	globalFields := make(map[string]int)
	for _, e := range entries {
		if e.Action != audit.ActionStatusChange || e.Detail.To != string(tracking.StatusRejected) {
			continue
		}
		firm, ok := firmByRecord[e.EntityID]
		for _, field := range e.Detail.Fields {
			globalFields[field]++
			if ok {
				firmTally(firm).fields[field]++
			}
		}
	}

	snapshot := Snapshot{
		PerCounterparty:   make([]CounterpartyStats, 0, len(firms)),
		CommonIssueFields: rankFields(globalFields),
	}
	for firm, t := range firms {
		total := t.completed + t.failed
		stats := CounterpartyStats{
			ContraFirm:       firm,
			TotalSubmissions: total,
			Completed:        t.completed,
			Failed:           t.failed,
			LowConfidence:    total < minSubmissions,
		}
		if total > 0 {
			stats.SuccessRate = float64(t.completed) / float64(total)
		}
		for _, fc := range rankFields(t.fields) {
			stats.TopIssueFields = append(stats.TopIssueFields, fc.Field)
		}
		snapshot.PerCounterparty = append(snapshot.PerCounterparty, stats)
	}
	sort.Slice(snapshot.PerCounterparty, func(i, j int) bool {
		return snapshot.PerCounterparty[i].ContraFirm < snapshot.PerCounterparty[j].ContraFirm
	})

	if terminal := totalCompleted + totalFailed; terminal > 0 {
		snapshot.OverallSuccessRate = float64(totalCompleted) / float64(terminal)
	}
	return snapshot
}

func rankFields(counts map[string]int) []FieldCount {
	out := make([]FieldCount, 0, len(counts))
	for field, count := range counts {
		out = append(out, FieldCount{Field: field, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Field < out[j].Field
		}
		return out[i].Count > out[j].Count
	})
	return out
}
