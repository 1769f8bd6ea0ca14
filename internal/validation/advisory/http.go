package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"transferdesk/internal/acat"
	dErrors "transferdesk/pkg/domainerrors"
)

// HTTPClient calls an advisory endpoint that accepts the request payload and
// responds with candidate corrections. Some deployments front a language
// model that wraps its JSON in prose, so the parser tolerates a JSON object
// embedded in surrounding text.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClient builds a client for the given endpoint. The http.Client
// carries no timeout of its own; callers bound each Analyze with ctx.
func NewHTTPClient(endpoint string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{},
	}
}

type analyzeRequest struct {
	Request acat.Request `json:"request"`
}

type analyzeResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

func (c *HTTPClient) Analyze(ctx context.Context, req acat.Request) ([]Suggestion, error) {
	body, err := json.Marshal(analyzeRequest{Request: req})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeAdvisoryUnavailable, "encode advisory request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeAdvisoryUnavailable, "build advisory request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeAdvisoryUnavailable, "advisory call failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.New(dErrors.CodeAdvisoryUnavailable,
			fmt.Sprintf("advisory returned status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeAdvisoryUnavailable, "read advisory response")
	}

	suggestions, err := ParseSuggestions(raw)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeAdvisoryUnavailable, "parse advisory response")
	}
	return suggestions, nil
}

// ParseSuggestions decodes the collaborator's payload, extracting the first
// JSON object when the body is not pure JSON. Confidence values are clamped
// to [0,1]; suggestion order is preserved.
func ParseSuggestions(raw []byte) ([]Suggestion, error) {
	text := string(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in advisory payload")
	}

	var parsed analyzeResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, len(parsed.Suggestions))
	for _, s := range parsed.Suggestions {
		if s.Field == "" {
			continue
		}
		s.Confidence = ClampConfidence(s.Confidence)
		suggestions = append(suggestions, s)
	}
	return suggestions, nil
}
