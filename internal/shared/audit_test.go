package shared

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuditRecordRequiresConfiguredPool(t *testing.T) {
	var nilLogger *AuditLogger
	err := nilLogger.Record(context.Background(), AuditLog{Action: "a", Entity: "b", EntityID: "c"})
	require.Error(t, err)

	err = (&AuditLogger{}).Record(context.Background(), AuditLog{Action: "a", Entity: "b", EntityID: "c"})
	require.Error(t, err)
}

func TestAuditRecordRejectsIncompleteEntries(t *testing.T) {
	logger := &AuditLogger{}
	for _, entry := range []AuditLog{
		{Entity: "sales_invoice", EntityID: "1"},
		{Action: "sales.invoice.post", EntityID: "1"},
		{Action: "sales.invoice.post", Entity: "sales_invoice"},
	} {
		require.Error(t, logger.Record(context.Background(), entry))
	}
}
