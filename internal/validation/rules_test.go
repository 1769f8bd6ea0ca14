package validation

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"transferdesk/internal/acat"
)

// =============================================================================
// Rule Engine Suite
// =============================================================================
// Justification for unit tests: Evaluate is a pure function. Each check has
// precise severity, confidence and suggested-value behavior that the service
// tests only observe in aggregate.

type RulesSuite struct {
	suite.Suite
}

func TestRulesSuite(t *testing.T) {
	suite.Run(t, new(RulesSuite))
}

func cleanRequest() acat.Request {
	return acat.Request{
		DeliveringAccount: "12345678",
		ReceivingAccount:  "87654321",
		ContraFirm:        "0001",
		TransferType:      acat.TransferFull,
		Customer:          acat.CustomerInfo{FirstName: "Jane", LastName: "Doe", SSN: "123-45-6789"},
		Securities: []acat.Security{
			{CUSIP: "037833100", Description: "Apple Inc", Quantity: 100, AssetType: acat.AssetEquity},
		},
	}
}

func findByField(findings []Finding, field string) (Finding, bool) {
	for _, f := range findings {
		if f.Field == field {
			return f, true
		}
	}
	return Finding{}, false
}

func (s *RulesSuite) TestEvaluateCleanRequest() {
	findings := Evaluate(cleanRequest())
	s.Empty(findings)
}

func (s *RulesSuite) TestEvaluateIsDeterministic() {
	req := cleanRequest()
	req.ContraFirm = "9999"
	req.Securities[0].CUSIP = "037833101"
	req.Customer.SSN = "123456789"

	first := Evaluate(req)
	second := Evaluate(req)
	s.Equal(first, second)
	s.NotEmpty(first)
}

func (s *RulesSuite) TestContraFirmCheck() {
	s.Run("non-numeric firm is an error", func() {
		req := cleanRequest()
		req.ContraFirm = "00A1"
		f, ok := findByField(Evaluate(req), "contra_firm")
		s.Require().True(ok)
		s.Equal(SeverityError, f.Severity)
		s.Equal(1.0, f.Confidence)
	})

	s.Run("wrong length firm is an error", func() {
		req := cleanRequest()
		req.ContraFirm = "001"
		f, ok := findByField(Evaluate(req), "contra_firm")
		s.Require().True(ok)
		s.Equal(SeverityError, f.Severity)
	})

	s.Run("unknown four-digit firm is only a warning", func() {
		req := cleanRequest()
		req.ContraFirm = "9999"
		f, ok := findByField(Evaluate(req), "contra_firm")
		s.Require().True(ok)
		s.Equal(SeverityWarning, f.Severity)
		s.Equal(0.7, f.Confidence)
	})

	s.Run("recognized firm produces no finding", func() {
		req := cleanRequest()
		req.ContraFirm = "0009"
		_, ok := findByField(Evaluate(req), "contra_firm")
		s.False(ok)
	})
}

func (s *RulesSuite) TestAccountChecks() {
	s.Run("invalid characters are an error with normalized suggestion", func() {
		req := cleanRequest()
		req.ReceivingAccount = "87!654"
		f, ok := findByField(Evaluate(req), "receiving_account")
		s.Require().True(ok)
		s.Equal(SeverityError, f.Severity)
		s.Equal("87!654", f.CurrentValue)
	})

	s.Run("separators alone are tolerated", func() {
		req := cleanRequest()
		req.DeliveringAccount = "1234-5678"
		_, ok := findByField(Evaluate(req), "delivering_account")
		s.False(ok)
	})
}

func (s *RulesSuite) TestTransferTypeCheck() {
	s.Run("partial transfer with no line items is an error", func() {
		req := cleanRequest()
		req.TransferType = acat.TransferPartial
		req.Securities = nil
		f, ok := findByField(Evaluate(req), "securities")
		s.Require().True(ok)
		s.Equal(SeverityError, f.Severity)
	})

	s.Run("full transfer with no line items is allowed", func() {
		req := cleanRequest()
		req.TransferType = acat.TransferFull
		req.Securities = nil
		_, ok := findByField(Evaluate(req), "securities")
		s.False(ok)
	})
}

func (s *RulesSuite) TestSecurityChecks() {
	s.Run("bad checksum produces exactly one error with a correction", func() {
		req := cleanRequest()
		req.Securities[0].CUSIP = "037-833-100"
		findings := Evaluate(req)

		var cusipFindings []Finding
		for _, f := range findings {
			if f.Field == "securities[0].cusip" {
				cusipFindings = append(cusipFindings, f)
			}
		}
		s.Require().Len(cusipFindings, 1)
		s.Equal(SeverityError, cusipFindings[0].Severity)
		s.Equal("037833100", cusipFindings[0].SuggestedValue)
		s.Equal(0.8, cusipFindings[0].Confidence)
	})

	s.Run("zero quantity is an error", func() {
		req := cleanRequest()
		req.Securities[0].Quantity = 0
		f, ok := findByField(Evaluate(req), "securities[0].quantity")
		s.Require().True(ok)
		s.Equal(SeverityError, f.Severity)
	})

	s.Run("negative quantity is an error", func() {
		req := cleanRequest()
		req.Securities[0].Quantity = -5
		f, ok := findByField(Evaluate(req), "securities[0].quantity")
		s.Require().True(ok)
		s.Equal(SeverityError, f.Severity)
	})

	s.Run("cash line skips the checksum but flags a stray CUSIP", func() {
		req := cleanRequest()
		req.Securities = []acat.Security{
			{CUSIP: "whatever", Description: "Cash", Quantity: 150000, AssetType: acat.AssetCash},
		}
		f, ok := findByField(Evaluate(req), "securities[0].cusip")
		s.Require().True(ok)
		s.Equal(SeverityInfo, f.Severity)
	})

	s.Run("cash line without CUSIP is clean", func() {
		req := cleanRequest()
		req.Securities = []acat.Security{
			{Description: "Cash", Quantity: 150000, AssetType: acat.AssetCash},
		}
		s.Empty(Evaluate(req))
	})

	s.Run("missing description is a warning", func() {
		req := cleanRequest()
		req.Securities[0].Description = ""
		f, ok := findByField(Evaluate(req), "securities[0].description")
		s.Require().True(ok)
		s.Equal(SeverityWarning, f.Severity)
	})

	s.Run("line items are flagged under their own index", func() {
		req := cleanRequest()
		req.Securities = append(req.Securities, acat.Security{
			CUSIP: "594918104", Description: "Microsoft", Quantity: 0, AssetType: acat.AssetEquity,
		})
		_, ok := findByField(Evaluate(req), "securities[1].quantity")
		s.True(ok)
		_, ok = findByField(Evaluate(req), "securities[0].quantity")
		s.False(ok)
	})
}

func (s *RulesSuite) TestCustomerChecks() {
	s.Run("malformed SSN warns with formatted suggestion", func() {
		req := cleanRequest()
		req.Customer.SSN = "123456789"
		f, ok := findByField(Evaluate(req), "customer.ssn")
		s.Require().True(ok)
		s.Equal(SeverityWarning, f.Severity)
		s.Equal("123-45-6789", f.SuggestedValue)
		s.Equal(0.95, f.Confidence)
	})

	s.Run("implausible tax id warns", func() {
		req := cleanRequest()
		req.Customer.SSN = ""
		req.Customer.TaxID = "12345"
		f, ok := findByField(Evaluate(req), "customer.tax_id")
		s.Require().True(ok)
		s.Equal(SeverityWarning, f.Severity)
	})

	s.Run("no identifier at all warns", func() {
		req := cleanRequest()
		req.Customer.SSN = ""
		req.Customer.TaxID = ""
		f, ok := findByField(Evaluate(req), "customer.tax_id")
		s.Require().True(ok)
		s.Equal(SeverityWarning, f.Severity)
	})
}
