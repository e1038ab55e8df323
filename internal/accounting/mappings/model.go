package mappings

import "time"

// AccountMapping links integration keys to ledger accounts. The journal
// builder resolves its debit/credit accounts through these rows instead of
// hard-coding account ids.
type AccountMapping struct {
	Module    string
	Key       string
	AccountID int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Well-known mapping keys used by document posting.
const (
	ModuleSales     = "SALES"
	ModulePurchases = "PURCHASES"

	KeyInventory     = "inventory"
	KeyPurchasesCost = "purchases.cost"
	KeyCostOfSales   = "cost.of.sales"
	KeyRevenue       = "revenue"
	KeyReceivable    = "receivable"
	KeyPayable       = "payable"
	KeyVATOutput     = "vat.output"
	KeyVATInput      = "vat.input"
)
