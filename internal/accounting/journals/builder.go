package journals

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// AccountRef identifies a ledger account resolved from the mapping table.
type AccountRef struct {
	ID   int64
	Name string
}

// CostEntryInput describes the accounting impact of a costed inventory
// document. DebitAccount and CreditAccount come from the module's account
// mappings: inventory vs purchases-cost for purchases, cost-of-sales vs
// inventory for sales.
type CostEntryInput struct {
	SourceModule   string
	SourceID       uuid.UUID
	DocumentNumber string
	Date           time.Time
	TotalCost      float64
	DebitAccount   AccountRef
	CreditAccount  AccountRef
	CreatedBy      int64
}

// BuildCostEntry turns a costed document into a balanced two-line draft.
// The second return value is false when there is nothing to record, which
// happens for zero-cost documents.
func BuildCostEntry(in CostEntryInput) (DraftInput, bool) {
	total := math.Round(in.TotalCost*100) / 100
	if total <= 0 {
		return DraftInput{}, false
	}

	desc := fmt.Sprintf("تكلفة مستند %s", in.DocumentNumber)
	return DraftInput{
		Date:         in.Date,
		SourceModule: normalizeModule(in.SourceModule),
		SourceID:     in.SourceID,
		Description:  desc,
		CreatedBy:    in.CreatedBy,
		Lines: []LineInput{
			{
				AccountID:   in.DebitAccount.ID,
				AccountName: in.DebitAccount.Name,
				Description: desc,
				Debit:       total,
			},
			{
				AccountID:   in.CreditAccount.ID,
				AccountName: in.CreditAccount.Name,
				Description: desc,
				Credit:      total,
			},
		},
	}, true
}
