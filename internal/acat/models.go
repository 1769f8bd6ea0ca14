// Package acat defines the domain model for ACAT transfer requests: the
// request itself, its security line items, and the customer value objects.
// Types here carry data and structural invariants only; validation heuristics
// live in internal/validation.
package acat

import (
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"

	dErrors "transferdesk/pkg/domainerrors"
)

// TransferType distinguishes a full account move from a partial one.
type TransferType string

const (
	TransferFull    TransferType = "full"
	TransferPartial TransferType = "partial"
)

// AssetType categorizes a security line item.
type AssetType string

const (
	AssetEquity     AssetType = "equity"
	AssetMutualFund AssetType = "mutual_fund"
	AssetBond       AssetType = "bond"
	AssetOption     AssetType = "option"
	AssetCash       AssetType = "cash"
)

var ssnPattern = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)

// Security is one line item of a transfer. Quantity is a whole share count
// for non-cash assets and a currency minor-unit amount for cash.
type Security struct {
	CUSIP       string    `json:"cusip"`
	Symbol      string    `json:"symbol,omitempty"`
	Description string    `json:"description"`
	Quantity    int64     `json:"quantity"`
	AssetType   AssetType `json:"asset_type"`
}

// CustomerInfo identifies the account holder on the transfer.
type CustomerInfo struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	SSN         string `json:"ssn,omitempty"`
	TaxID       string `json:"tax_id,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
}

// Request is an ACAT transfer request as submitted by an operator. ContraFirm
// is the 4-digit DTCC participant number of the delivering institution.
type Request struct {
	DeliveringAccount   string       `json:"delivering_account"`
	ReceivingAccount    string       `json:"receiving_account"`
	ContraFirm          string       `json:"contra_firm"`
	TransferType        TransferType `json:"transfer_type"`
	TransferDate        string       `json:"transfer_date,omitempty"`
	Securities          []Security   `json:"securities"`
	Customer            CustomerInfo `json:"customer"`
	SpecialInstructions string       `json:"special_instructions,omitempty"`
	AccountType         string       `json:"account_type,omitempty"`
}

// CheckSchema enforces the structural invariants a request must satisfy before
// validation heuristics are worth running. Violations are fatal
// (schema_violation), unlike rule findings which are data.
func (r Request) CheckSchema() error {
	if err := checkAccountNumber("delivering_account", r.DeliveringAccount); err != nil {
		return err
	}
	if err := checkAccountNumber("receiving_account", r.ReceivingAccount); err != nil {
		return err
	}
	if r.ContraFirm == "" {
		return dErrors.New(dErrors.CodeSchemaViolation, "contra_firm is required")
	}
	switch r.TransferType {
	case TransferFull, TransferPartial:
	default:
		return dErrors.New(dErrors.CodeSchemaViolation, "transfer_type must be 'full' or 'partial'")
	}
	if r.Customer.FirstName == "" || r.Customer.LastName == "" {
		return dErrors.New(dErrors.CodeSchemaViolation, "customer first and last name are required")
	}
	for _, sec := range r.Securities {
		switch sec.AssetType {
		case AssetEquity, AssetMutualFund, AssetBond, AssetOption, AssetCash:
		default:
			return dErrors.New(dErrors.CodeSchemaViolation, "unknown asset_type")
		}
	}
	if len(r.SpecialInstructions) > 500 {
		return dErrors.New(dErrors.CodeSchemaViolation, "special_instructions exceeds 500 characters")
	}
	return nil
}

func checkAccountNumber(field, value string) error {
	if value == "" {
		return dErrors.New(dErrors.CodeSchemaViolation, field+" is required")
	}
	if len(value) > 20 {
		return dErrors.New(dErrors.CodeSchemaViolation, field+" exceeds 20 characters")
	}
	return nil
}

// NormalizeAccountNumber strips the separators firms commonly embed in
// account numbers. The result is what the clearing network actually matches.
func NormalizeAccountNumber(account string) string {
	replacer := strings.NewReplacer("-", "", "_", "", " ", "")
	return replacer.Replace(account)
}

// IsPlausibleAccountNumber reports whether the account number is alphanumeric
// once separators are stripped.
func IsPlausibleAccountNumber(account string) bool {
	clean := NormalizeAccountNumber(account)
	return clean != "" && govalidator.IsAlphanumeric(clean)
}

// IsValidSSN reports whether s matches the XXX-XX-XXXX layout.
func IsValidSSN(s string) bool {
	return ssnPattern.MatchString(s)
}

// FormatSSN reshapes a 9-digit string into XXX-XX-XXXX. Input that does not
// reduce to 9 digits is returned unchanged.
func FormatSSN(s string) string {
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) != 9 {
		return s
	}
	return d[:3] + "-" + d[3:5] + "-" + d[5:]
}

// IsPlausibleTaxID accepts a 9-digit identifier with or without the XX-XXXXXXX
// EIN separator.
func IsPlausibleTaxID(s string) bool {
	if len(s) == 10 && s[2] == '-' {
		s = s[:2] + s[3:]
	}
	return len(s) == 9 && govalidator.IsNumeric(s)
}
