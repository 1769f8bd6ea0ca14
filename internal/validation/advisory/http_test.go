package advisory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"transferdesk/internal/acat"
	dErrors "transferdesk/pkg/domainerrors"
)

type HTTPClientSuite struct {
	suite.Suite
}

func TestHTTPClientSuite(t *testing.T) {
	suite.Run(t, new(HTTPClientSuite))
}

func sampleRequest() acat.Request {
	return acat.Request{
		DeliveringAccount: "12345678",
		ReceivingAccount:  "87654321",
		ContraFirm:        "0001",
		TransferType:      acat.TransferFull,
		Customer:          acat.CustomerInfo{FirstName: "Jane", LastName: "Doe"},
	}
}

func (s *HTTPClientSuite) TestAnalyze() {
	s.Run("posts the request and decodes suggestions", func() {
		var received analyzeRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.Equal(http.MethodPost, r.Method)
			s.Equal("application/json", r.Header.Get("Content-Type"))
			s.NoError(json.NewDecoder(r.Body).Decode(&received))
			_, _ = w.Write([]byte(`{"suggestions":[{"field":"contra_firm","suggested_value":"0002","reason":"name matches Schwab","confidence":0.9}]}`))
		}))
		defer srv.Close()

		client := NewHTTPClient(srv.URL)
		suggestions, err := client.Analyze(context.Background(), sampleRequest())
		s.Require().NoError(err)
		s.Equal("0001", received.Request.ContraFirm)
		s.Require().Len(suggestions, 1)
		s.Equal("contra_firm", suggestions[0].Field)
		s.Equal("0002", suggestions[0].SuggestedValue)
		s.Equal(0.9, suggestions[0].Confidence)
	})

	s.Run("non-200 status maps to advisory_unavailable", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := NewHTTPClient(srv.URL)
		_, err := client.Analyze(context.Background(), sampleRequest())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAdvisoryUnavailable))
	})

	s.Run("context deadline cuts the call short", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		client := NewHTTPClient(srv.URL)
		_, err := client.Analyze(ctx, sampleRequest())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAdvisoryUnavailable))
	})

	s.Run("unreachable endpoint maps to advisory_unavailable", func() {
		client := NewHTTPClient("http://127.0.0.1:1")
		_, err := client.Analyze(context.Background(), sampleRequest())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAdvisoryUnavailable))
	})
}

func (s *HTTPClientSuite) TestParseSuggestions() {
	s.Run("pure JSON parses", func() {
		suggestions, err := ParseSuggestions([]byte(`{"suggestions":[{"field":"customer.ssn","suggested_value":"123-45-6789","reason":"reformat","confidence":0.8}]}`))
		s.Require().NoError(err)
		s.Require().Len(suggestions, 1)
		s.Equal("customer.ssn", suggestions[0].Field)
	})

	s.Run("JSON wrapped in prose parses", func() {
		raw := []byte("Here is my analysis:\n{\"suggestions\":[{\"field\":\"transfer_date\",\"reason\":\"market holiday\",\"confidence\":0.7}]}\nLet me know if you need more.")
		suggestions, err := ParseSuggestions(raw)
		s.Require().NoError(err)
		s.Require().Len(suggestions, 1)
		s.Equal("transfer_date", suggestions[0].Field)
	})

	s.Run("suggestions without a field are dropped", func() {
		suggestions, err := ParseSuggestions([]byte(`{"suggestions":[{"field":"","reason":"vague"},{"field":"contra_firm","reason":"ok"}]}`))
		s.Require().NoError(err)
		s.Require().Len(suggestions, 1)
		s.Equal("contra_firm", suggestions[0].Field)
	})

	s.Run("confidence is clamped into range", func() {
		suggestions, err := ParseSuggestions([]byte(`{"suggestions":[{"field":"a","confidence":7},{"field":"b","confidence":-2}]}`))
		s.Require().NoError(err)
		s.Require().Len(suggestions, 2)
		s.Equal(1.0, suggestions[0].Confidence)
		s.Equal(0.0, suggestions[1].Confidence)
	})

	s.Run("no JSON object at all is an error", func() {
		_, err := ParseSuggestions([]byte("I could not analyze that request."))
		s.Error(err)
	})

	s.Run("malformed JSON is an error", func() {
		_, err := ParseSuggestions([]byte(`{"suggestions": [`))
		s.Error(err)
	})
}
