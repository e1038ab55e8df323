package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mizan-erp/mizan-erp/internal/accounting/accounts"
	"github.com/mizan-erp/mizan-erp/internal/accounting/journals"
	"github.com/mizan-erp/mizan-erp/internal/accounting/mappings"
	accshared "github.com/mizan-erp/mizan-erp/internal/accounting/shared"
	"github.com/mizan-erp/mizan-erp/internal/procurement"
	"github.com/mizan-erp/mizan-erp/internal/sales"
)

// Ledger exposes the journal operations required by integrations.
type Ledger interface {
	CreateDraft(ctx context.Context, input journals.DraftInput) (journals.JournalEntry, error)
}

// AccountMappingRepository provides mapping lookups.
type AccountMappingRepository interface {
	Get(ctx context.Context, module, key string) (mappings.AccountMapping, error)
}

// AccountDirectory resolves account display names for journal lines.
type AccountDirectory interface {
	Get(ctx context.Context, id int64) (accounts.Account, error)
}

// Hooks wires document events from the sales and procurement modules into
// the general ledger. It implements sales.IntegrationHandler and
// procurement.IntegrationHandler.
type Hooks struct {
	ledger      Ledger
	mappingRepo AccountMappingRepository
	accountRepo AccountDirectory
}

// NewHooks constructs integration hooks.
func NewHooks(ledger Ledger, mappingRepo AccountMappingRepository, accountRepo AccountDirectory) *Hooks {
	return &Hooks{ledger: ledger, mappingRepo: mappingRepo, accountRepo: accountRepo}
}

var _ sales.IntegrationHandler = (*Hooks)(nil)
var _ procurement.IntegrationHandler = (*Hooks)(nil)

func (h *Hooks) ready() bool {
	return h != nil && h.ledger != nil && h.mappingRepo != nil
}

func (h *Hooks) resolveAccount(ctx context.Context, module, key string) (journals.AccountRef, error) {
	mapping, err := h.mappingRepo.Get(ctx, module, key)
	if err != nil {
		return journals.AccountRef{}, err
	}
	ref := journals.AccountRef{ID: mapping.AccountID}
	if h.accountRepo != nil {
		if account, err := h.accountRepo.Get(ctx, mapping.AccountID); err == nil {
			ref.Name = account.NameAr
		}
	}
	return ref, nil
}

func (h *Hooks) createDraft(ctx context.Context, input journals.DraftInput) error {
	if input.SourceID == uuid.Nil {
		return errors.New("integration: source id required")
	}
	_, err := h.ledger.CreateDraft(ctx, input)
	if errors.Is(err, accshared.ErrSourceAlreadyLinked) {
		return nil
	}
	return err
}

// HandleSalesInvoicePosted records the cost entry (cost of sales against
// inventory) and the revenue entry (receivable against revenue and output
// VAT) for a posted sales invoice.
func (h *Hooks) HandleSalesInvoicePosted(ctx context.Context, evt sales.InvoicePostedEvent) error {
	if !h.ready() {
		return nil
	}
	if evt.PostedAt.IsZero() {
		return errors.New("integration: sales invoice post date required")
	}

	costOfSales, err := h.resolveAccount(ctx, mappings.ModuleSales, mappings.KeyCostOfSales)
	if err != nil {
		return err
	}
	inventory, err := h.resolveAccount(ctx, mappings.ModuleSales, mappings.KeyInventory)
	if err != nil {
		return err
	}
	costInput, ok := journals.BuildCostEntry(journals.CostEntryInput{
		SourceModule:   "SALES.COST",
		SourceID:       evt.ID,
		DocumentNumber: evt.Number,
		Date:           evt.PostedAt,
		TotalCost:      evt.TotalCost,
		DebitAccount:   costOfSales,
		CreditAccount:  inventory,
		CreatedBy:      evt.PostedBy,
	})
	if ok {
		if err := h.createDraft(ctx, costInput); err != nil {
			return err
		}
	}

	total := round2(evt.Total)
	if total <= 0 {
		return nil
	}
	receivable, err := h.resolveAccount(ctx, mappings.ModuleSales, mappings.KeyReceivable)
	if err != nil {
		return err
	}
	revenue, err := h.resolveAccount(ctx, mappings.ModuleSales, mappings.KeyRevenue)
	if err != nil {
		return err
	}
	tax := round2(evt.TaxTotal)
	desc := fmt.Sprintf("فاتورة مبيعات %s", evt.Number)
	lines := []journals.LineInput{
		{AccountID: receivable.ID, AccountName: receivable.Name, Description: desc, Debit: total},
		{AccountID: revenue.ID, AccountName: revenue.Name, Description: desc, Credit: round2(total - tax)},
	}
	if tax > 0 {
		vatOutput, err := h.resolveAccount(ctx, mappings.ModuleSales, mappings.KeyVATOutput)
		if err != nil {
			return err
		}
		lines = append(lines, journals.LineInput{
			AccountID: vatOutput.ID, AccountName: vatOutput.Name, Description: desc, Credit: tax,
		})
	}
	return h.createDraft(ctx, journals.DraftInput{
		Date:         evt.PostedAt,
		SourceModule: "SALES.REVENUE",
		SourceID:     evt.ID,
		Description:  desc,
		CreatedBy:    evt.PostedBy,
		Lines:        lines,
	})
}

// HandlePurchaseInvoicePosted records the cost entry (inventory against
// purchases cost) and the payable entry for a posted purchase invoice.
func (h *Hooks) HandlePurchaseInvoicePosted(ctx context.Context, evt procurement.InvoicePostedEvent) error {
	if !h.ready() {
		return nil
	}
	if evt.PostedAt.IsZero() {
		return errors.New("integration: purchase invoice post date required")
	}

	inventory, err := h.resolveAccount(ctx, mappings.ModulePurchases, mappings.KeyInventory)
	if err != nil {
		return err
	}
	purchasesCost, err := h.resolveAccount(ctx, mappings.ModulePurchases, mappings.KeyPurchasesCost)
	if err != nil {
		return err
	}
	costInput, ok := journals.BuildCostEntry(journals.CostEntryInput{
		SourceModule:   "PURCHASES.COST",
		SourceID:       evt.ID,
		DocumentNumber: evt.Number,
		Date:           evt.PostedAt,
		TotalCost:      evt.TotalCost,
		DebitAccount:   inventory,
		CreditAccount:  purchasesCost,
		CreatedBy:      evt.PostedBy,
	})
	if ok {
		if err := h.createDraft(ctx, costInput); err != nil {
			return err
		}
	}

	total := round2(evt.Total)
	if total <= 0 {
		return nil
	}
	payable, err := h.resolveAccount(ctx, mappings.ModulePurchases, mappings.KeyPayable)
	if err != nil {
		return err
	}
	tax := round2(evt.TaxTotal)
	desc := fmt.Sprintf("فاتورة مشتريات %s", evt.Number)
	lines := []journals.LineInput{
		{AccountID: purchasesCost.ID, AccountName: purchasesCost.Name, Description: desc, Debit: round2(total - tax)},
	}
	if tax > 0 {
		vatInput, err := h.resolveAccount(ctx, mappings.ModulePurchases, mappings.KeyVATInput)
		if err != nil {
			return err
		}
		lines = append(lines, journals.LineInput{
			AccountID: vatInput.ID, AccountName: vatInput.Name, Description: desc, Debit: tax,
		})
	}
	lines = append(lines, journals.LineInput{
		AccountID: payable.ID, AccountName: payable.Name, Description: desc, Credit: total,
	})
	return h.createDraft(ctx, journals.DraftInput{
		Date:         evt.PostedAt,
		SourceModule: "PURCHASES.AP",
		SourceID:     evt.ID,
		Description:  desc,
		CreatedBy:    evt.PostedBy,
		Lines:        lines,
	})
}
