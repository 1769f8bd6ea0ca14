// Package validation scores ACAT requests before submission. The rule engine
// produces deterministic findings; the service merges them with advisory
// suggestions and estimates a success probability.
package validation

// Severity ranks how much a finding threatens acceptance by the clearing
// network. Error findings make the request invalid on their own.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Origin records which path produced a finding. Rule findings encode hard
// constraints; advisory findings are heuristic.
type Origin string

const (
	OriginRule     Origin = "rule"
	OriginAdvisory Origin = "advisory"
)

// Finding is one structured observation about a request field. Findings are
// immutable once produced; the merge step builds new ones rather than
// mutating inputs.
type Finding struct {
	Field          string   `json:"field"`
	Severity       Severity `json:"severity"`
	CurrentValue   string   `json:"current_value"`
	SuggestedValue string   `json:"suggested_value,omitempty"`
	Reason         string   `json:"reason"`
	Confidence     float64  `json:"confidence"`
	Origin         Origin   `json:"origin"`
}

// Result is the outcome of one validation call. It is returned to the caller
// and never persisted; only the accepted request is stored with its record.
type Result struct {
	Valid              bool      `json:"is_valid"`
	SuccessProbability float64   `json:"success_probability"`
	Findings           []Finding `json:"findings"`
	Warnings           []string  `json:"warnings"`
	Summary            string    `json:"summary"`
}

func hasError(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}
