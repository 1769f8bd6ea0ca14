package validation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"transferdesk/internal/acat"
	"transferdesk/internal/platform/metrics"
	"transferdesk/internal/validation/advisory"
	dErrors "transferdesk/pkg/domainerrors"
)

// ScoringConfig tunes the success-probability estimate.
type ScoringConfig struct {
	// BaseRate is the estimate for a clean request with no history.
	BaseRate float64
	// ErrorPenalty and WarningPenalty are subtracted per finding of that
	// severity.
	ErrorPenalty   float64
	WarningPenalty float64
	// HistoryWeightCap bounds how far counterparty history can pull the
	// estimate; HistoryWeightPerSubmission accrues weight toward that cap.
	HistoryWeightCap           float64
	HistoryWeightPerSubmission float64
	// AdvisoryTimeout bounds the advisory collaborator call.
	AdvisoryTimeout time.Duration
}

// DefaultScoringConfig mirrors the penalties the desk has used historically.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		BaseRate:                   0.95,
		ErrorPenalty:               0.30,
		WarningPenalty:             0.10,
		HistoryWeightCap:           0.5,
		HistoryWeightPerSubmission: 0.05,
		AdvisoryTimeout:            10 * time.Second,
	}
}

// CounterpartyHistory is the slice of learning output scoring consumes.
type CounterpartyHistory struct {
	SuccessRate      float64
	TotalSubmissions int
}

// HistoryProvider supplies per-counterparty history as a scoring prior.
// Implementations may serve stale data; scoring never waits on a rebuild.
type HistoryProvider interface {
	ContraFirmHistory(ctx context.Context, contraFirm string) (CounterpartyHistory, bool)
}

// Service runs the rule engine and the advisory collaborator concurrently,
// merges their output per field, and scores the result.
type Service struct {
	advisory advisory.Client
	history  HistoryProvider
	cfg      ScoringConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(advisoryClient advisory.Client, history HistoryProvider, cfg ScoringConfig, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		advisory: advisoryClient,
		history:  history,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// Validate checks the request and returns findings plus a success-probability
// estimate. The rule path is deterministic; the advisory path is bounded by
// the configured timeout and degrades to an info finding on any failure.
// Structural violations abort before either path runs.
func (s *Service) Validate(ctx context.Context, req acat.Request) (Result, error) {
	if err := req.CheckSchema(); err != nil {
		return Result{}, err
	}

	var (
		ruleFindings []Finding
		suggestions  []advisory.Suggestion
		advisoryErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ruleFindings = Evaluate(req)
		return nil
	})
	g.Go(func() error {
		if s.advisory == nil {
			advisoryErr = dErrors.New(dErrors.CodeAdvisoryUnavailable, "no advisory collaborator configured")
			return nil
		}
		actx, cancel := context.WithTimeout(gctx, s.cfg.AdvisoryTimeout)
		defer cancel()

		start := time.Now()
		suggestions, advisoryErr = s.advisory.Analyze(actx, req)
		if s.metrics != nil {
			s.metrics.ObserveAdvisoryLatency(time.Since(start))
			if advisoryErr != nil {
				s.metrics.AdvisoryFailures.Inc()
			}
		}
		// Advisory failure degrades analysis, it never blocks validation.
		return nil
	})
	// Neither goroutine returns an error; Wait only surfaces ctx cancellation.
	if err := g.Wait(); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "validation aborted")
	}

	findings := mergeFindings(ruleFindings, suggestions)
	degraded := advisoryErr != nil
	if degraded {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "advisory analysis degraded", "error", advisoryErr)
		}
		findings = append(findings, Finding{
			Field:      "advisory",
			Severity:   SeverityInfo,
			Reason:     "advisory analysis unavailable; result reflects rule-based checks only",
			Confidence: 1.0,
			Origin:     OriginAdvisory,
		})
	}

	result := Result{
		Valid:    !hasError(findings),
		Findings: findings,
		Warnings: collectWarnings(findings),
	}
	result.SuccessProbability = s.score(ctx, req.ContraFirm, findings)
	result.Summary = summarize(result, degraded)

	if s.metrics != nil {
		s.metrics.ValidationsTotal.Inc()
	}
	return result, nil
}

// mergeFindings combines both origins, deduplicating on field path. When both
// have an opinion about a field, the rule finding's severity wins, the higher
// confidence supplies the suggested value, and the rationales concatenate.
// Rule findings keep their order; advisory-only findings follow in the order
// the collaborator proposed them.
func mergeFindings(ruleFindings []Finding, suggestions []advisory.Suggestion) []Finding {
	byField := make(map[string]int, len(ruleFindings))
	merged := make([]Finding, 0, len(ruleFindings)+len(suggestions))
	for _, f := range ruleFindings {
		// Two rule findings on the same field: the earlier, more
		// fundamental check wins outright.
		if _, ok := byField[f.Field]; ok {
			continue
		}
		byField[f.Field] = len(merged)
		merged = append(merged, f)
	}

	for _, sug := range suggestions {
		sug.Confidence = advisory.ClampConfidence(sug.Confidence)
		if i, ok := byField[sug.Field]; ok {
			rule := merged[i]
			combined := rule
			if sug.Confidence > rule.Confidence && sug.SuggestedValue != "" {
				combined.SuggestedValue = sug.SuggestedValue
				combined.Confidence = sug.Confidence
			}
			if sug.Rationale != "" {
				combined.Reason = rule.Reason + "; advisory: " + sug.Rationale
			}
			merged[i] = combined
			continue
		}
		byField[sug.Field] = len(merged)
		merged = append(merged, Finding{
			Field:          sug.Field,
			Severity:       SeverityWarning,
			CurrentValue:   sug.CurrentValue,
			SuggestedValue: sug.SuggestedValue,
			Reason:         sug.Rationale,
			Confidence:     sug.Confidence,
			Origin:         OriginAdvisory,
		})
	}
	return merged
}

// score starts from the base rate, subtracts per-severity penalties, then
// pulls toward the counterparty's historical success rate with a weight that
// grows with submission volume and is capped so a thin history cannot swing
// the estimate.
func (s *Service) score(ctx context.Context, contraFirm string, findings []Finding) float64 {
	p := s.cfg.BaseRate
	for _, f := range findings {
		switch f.Severity {
		case SeverityError:
			p -= s.cfg.ErrorPenalty
		case SeverityWarning:
			p -= s.cfg.WarningPenalty
		}
	}

	if s.history != nil {
		if hist, ok := s.history.ContraFirmHistory(ctx, contraFirm); ok && hist.TotalSubmissions > 0 {
			w := float64(hist.TotalSubmissions) * s.cfg.HistoryWeightPerSubmission
			if w > s.cfg.HistoryWeightCap {
				w = s.cfg.HistoryWeightCap
			}
			p = p*(1-w) + p*hist.SuccessRate*w
		}
	}

	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func collectWarnings(findings []Finding) []string {
	warnings := make([]string, 0)
	for _, f := range findings {
		if f.Severity == SeverityWarning {
			warnings = append(warnings, fmt.Sprintf("%s: %s", f.Field, f.Reason))
		}
	}
	return warnings
}

func summarize(result Result, degraded bool) string {
	counts := map[Severity]int{}
	for _, f := range result.Findings {
		counts[f.Severity]++
	}
	keys := make([]string, 0, len(counts))
	for sev := range counts {
		keys = append(keys, string(sev))
	}
	sort.Strings(keys)

	summary := "no issues found"
	if len(result.Findings) > 0 {
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%d %s", counts[Severity(k)], k))
		}
		summary = "findings: " + strings.Join(parts, ", ")
	}
	if degraded {
		summary += " (rule-based checks only)"
	}
	return summary
}
