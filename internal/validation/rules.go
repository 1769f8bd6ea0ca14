package validation

import (
	"fmt"

	"transferdesk/internal/acat"
)

// KnownContraFirms maps DTCC participant numbers to the firms an operator is
// most likely transferring against. Membership is advisory: an unknown firm
// is a warning, not an error, and submission may proceed.
var KnownContraFirms = map[string]string{
	"0001": "Fidelity Investments",
	"0002": "Charles Schwab",
	"0003": "Merrill Lynch",
	"0004": "Morgan Stanley",
	"0005": "Goldman Sachs",
	"0006": "JP Morgan",
	"0007": "Bank of America",
	"0008": "Wells Fargo",
	"0009": "TD Ameritrade",
	"0010": "E*TRADE",
}

// Evaluate runs every deterministic rule check over the request. No I/O, no
// side effects: identical input yields identical findings in identical order.
func Evaluate(req acat.Request) []Finding {
	var findings []Finding
	findings = append(findings, checkContraFirm(req)...)
	findings = append(findings, checkAccounts(req)...)
	findings = append(findings, checkTransferType(req)...)
	findings = append(findings, checkSecurities(req)...)
	findings = append(findings, checkCustomer(req)...)
	return findings
}

func checkContraFirm(req acat.Request) []Finding {
	if len(req.ContraFirm) != 4 || !allDigits(req.ContraFirm) {
		return []Finding{{
			Field:        "contra_firm",
			Severity:     SeverityError,
			CurrentValue: req.ContraFirm,
			Reason:       "contra firm must be a 4-digit DTCC participant number",
			Confidence:   1.0,
			Origin:       OriginRule,
		}}
	}
	if _, ok := KnownContraFirms[req.ContraFirm]; !ok {
		return []Finding{{
			Field:        "contra_firm",
			Severity:     SeverityWarning,
			CurrentValue: req.ContraFirm,
			Reason:       "contra firm not recognized in common DTCC participants",
			Confidence:   0.7,
			Origin:       OriginRule,
		}}
	}
	return nil
}

func checkAccounts(req acat.Request) []Finding {
	var findings []Finding
	for _, acct := range []struct {
		field, value string
	}{
		{"delivering_account", req.DeliveringAccount},
		{"receiving_account", req.ReceivingAccount},
	} {
		if !acat.IsPlausibleAccountNumber(acct.value) {
			findings = append(findings, Finding{
				Field:          acct.field,
				Severity:       SeverityError,
				CurrentValue:   acct.value,
				SuggestedValue: acat.NormalizeAccountNumber(acct.value),
				Reason:         "account number contains invalid characters",
				Confidence:     0.9,
				Origin:         OriginRule,
			})
		}
	}
	return findings
}

func checkTransferType(req acat.Request) []Finding {
	if req.TransferType == acat.TransferPartial && len(req.Securities) == 0 {
		return []Finding{{
			Field:        "securities",
			Severity:     SeverityError,
			CurrentValue: "0 line items",
			Reason:       "partial transfers must list at least one security",
			Confidence:   1.0,
			Origin:       OriginRule,
		}}
	}
	return nil
}

func checkSecurities(req acat.Request) []Finding {
	var findings []Finding
	for i, sec := range req.Securities {
		if sec.Quantity <= 0 {
			findings = append(findings, Finding{
				Field:        fmt.Sprintf("securities[%d].quantity", i),
				Severity:     SeverityError,
				CurrentValue: fmt.Sprintf("%d", sec.Quantity),
				Reason:       "quantity must be a positive amount",
				Confidence:   1.0,
				Origin:       OriginRule,
			})
		}
		// Cash lines carry a minor-unit amount instead of a CUSIP'd
		// instrument, so the checksum only applies to the rest.
		if sec.AssetType != acat.AssetCash && !acat.IsValidCUSIP(sec.CUSIP) {
			findings = append(findings, Finding{
				Field:          fmt.Sprintf("securities[%d].cusip", i),
				Severity:       SeverityError,
				CurrentValue:   sec.CUSIP,
				SuggestedValue: acat.SuggestCUSIPCorrection(sec.CUSIP),
				Reason:         "CUSIP failed checksum validation",
				Confidence:     0.8,
				Origin:         OriginRule,
			})
		}
		if sec.AssetType == acat.AssetCash && sec.CUSIP != "" {
			findings = append(findings, Finding{
				Field:        fmt.Sprintf("securities[%d].cusip", i),
				Severity:     SeverityInfo,
				CurrentValue: sec.CUSIP,
				Reason:       "cash line items are matched by amount; the CUSIP is ignored",
				Confidence:   0.6,
				Origin:       OriginRule,
			})
		}
		if sec.Description == "" {
			findings = append(findings, Finding{
				Field:        fmt.Sprintf("securities[%d].description", i),
				Severity:     SeverityWarning,
				CurrentValue: "",
				Reason:       "missing security description slows manual review at the contra firm",
				Confidence:   0.7,
				Origin:       OriginRule,
			})
		}
	}
	return findings
}

func checkCustomer(req acat.Request) []Finding {
	var findings []Finding
	if req.Customer.SSN != "" && !acat.IsValidSSN(req.Customer.SSN) {
		findings = append(findings, Finding{
			Field:          "customer.ssn",
			Severity:       SeverityWarning,
			CurrentValue:   req.Customer.SSN,
			SuggestedValue: acat.FormatSSN(req.Customer.SSN),
			Reason:         "SSN format should be XXX-XX-XXXX",
			Confidence:     0.95,
			Origin:         OriginRule,
		})
	}
	if req.Customer.TaxID != "" && !acat.IsPlausibleTaxID(req.Customer.TaxID) {
		findings = append(findings, Finding{
			Field:        "customer.tax_id",
			Severity:     SeverityWarning,
			CurrentValue: req.Customer.TaxID,
			Reason:       "tax identifier does not look like a 9-digit TIN",
			Confidence:   0.8,
			Origin:       OriginRule,
		})
	}
	if req.Customer.SSN == "" && req.Customer.TaxID == "" {
		findings = append(findings, Finding{
			Field:      "customer.tax_id",
			Severity:   SeverityWarning,
			Reason:     "neither SSN nor tax identifier provided; contra firms commonly reject unidentified holders",
			Confidence: 0.75,
			Origin:     OriginRule,
		})
	}
	return findings
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
