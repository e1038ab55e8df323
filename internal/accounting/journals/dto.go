package journals

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	accshared "github.com/mizan-erp/mizan-erp/internal/accounting/shared"
	"github.com/mizan-erp/mizan-erp/internal/shared"
)

// LineInput is one side of a draft entry before persistence.
type LineInput struct {
	AccountID   int64   `json:"account_id" validate:"required,gt=0"`
	AccountName string  `json:"account_name"`
	Description string  `json:"description"`
	Debit       float64 `json:"debit" validate:"gte=0"`
	Credit      float64 `json:"credit" validate:"gte=0"`
}

// DraftInput is the payload for creating a journal entry. Entries always
// enter the system as drafts.
type DraftInput struct {
	Date         time.Time   `json:"date" validate:"required"`
	SourceModule string      `json:"source_module"`
	SourceID     uuid.UUID   `json:"source_id"`
	Description  string      `json:"description"`
	CreatedBy    int64       `json:"created_by"`
	Lines        []LineInput `json:"lines" validate:"required,min=2,dive"`
}

// Validate enforces the double-entry rules: at least two lines, no negative
// amounts, each line on exactly one side, totals equal to the cent.
func (in DraftInput) Validate() error {
	if len(in.Lines) < 2 {
		return accshared.ErrTooFewLines
	}

	var totalDebit, totalCredit float64
	for i, line := range in.Lines {
		if line.AccountID <= 0 {
			return fmt.Errorf("%w: line %d missing account", shared.ErrValidation, i+1)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("%w: line %d has a negative amount", shared.ErrValidation, i+1)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("%w: line %d cannot carry both debit and credit", shared.ErrValidation, i+1)
		}
		if line.Debit == 0 && line.Credit == 0 {
			return fmt.Errorf("%w: line %d carries no amount", shared.ErrValidation, i+1)
		}
		totalDebit += line.Debit
		totalCredit += line.Credit
	}

	if fmt.Sprintf("%.2f", totalDebit) != fmt.Sprintf("%.2f", totalCredit) {
		return accshared.ErrUnbalanced
	}
	return nil
}

// Totals returns the summed debit and credit sides.
func (in DraftInput) Totals() (debit, credit float64) {
	for _, line := range in.Lines {
		debit += line.Debit
		credit += line.Credit
	}
	return debit, credit
}

func normalizeModule(module string) string {
	return strings.ToUpper(strings.TrimSpace(module))
}
