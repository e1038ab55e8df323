package journals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	accshared "github.com/mizan-erp/mizan-erp/internal/accounting/shared"
	"github.com/mizan-erp/mizan-erp/internal/shared"
)

type memoryRepo struct {
	entries map[int64]*JournalEntry
	lines   map[int64][]JournalLine
	links   map[string]int64
	nextID  int64
	nextNum int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		entries: make(map[int64]*JournalEntry),
		lines:   make(map[int64][]JournalLine),
		links:   make(map[string]int64),
	}
}

func (m *memoryRepo) List(_ context.Context, filter ListFilter) ([]JournalEntry, error) {
	var out []JournalEntry
	for _, e := range m.entries {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (m *memoryRepo) GetWithLines(_ context.Context, id int64) (JournalEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return JournalEntry{}, accshared.ErrJournalNotFound
	}
	entry := *e
	entry.Lines = m.lines[id]
	return entry, nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) InsertEntry(_ context.Context, in DraftInput) (JournalEntry, error) {
	m.nextID++
	m.nextNum++
	debit, credit := in.Totals()
	entry := JournalEntry{
		ID:           m.nextID,
		Number:       m.nextNum,
		Date:         in.Date,
		SourceModule: in.SourceModule,
		SourceID:     in.SourceID,
		Description:  in.Description,
		TotalDebit:   debit,
		TotalCredit:  credit,
		Status:       JournalStatusDraft,
		CreatedBy:    in.CreatedBy,
	}
	m.entries[entry.ID] = &entry
	return entry, nil
}

func (m *memoryRepo) InsertLines(_ context.Context, entryID int64, lines []LineInput) error {
	for i, line := range lines {
		m.lines[entryID] = append(m.lines[entryID], JournalLine{
			ID:          int64(i + 1),
			JournalID:   entryID,
			AccountID:   line.AccountID,
			AccountName: line.AccountName,
			Description: line.Description,
			Debit:       line.Debit,
			Credit:      line.Credit,
		})
	}
	return nil
}

func (m *memoryRepo) LinkSource(_ context.Context, module string, ref uuid.UUID, entryID int64) error {
	key := module + ":" + ref.String()
	if _, exists := m.links[key]; exists {
		return accshared.ErrSourceConflict
	}
	m.links[key] = entryID
	return nil
}

func (m *memoryRepo) GetForUpdate(_ context.Context, entryID int64) (JournalEntry, error) {
	e, ok := m.entries[entryID]
	if !ok {
		return JournalEntry{}, accshared.ErrJournalNotFound
	}
	return *e, nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, entryID int64, status JournalStatus) error {
	e, ok := m.entries[entryID]
	if !ok {
		return accshared.ErrJournalNotFound
	}
	e.Status = status
	return nil
}

func balancedInput(sourceID uuid.UUID) DraftInput {
	return DraftInput{
		Date:         time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		SourceModule: "sales",
		SourceID:     sourceID,
		Description:  "قيد تكلفة",
		CreatedBy:    7,
		Lines: []LineInput{
			{AccountID: 501, AccountName: "تكلفة المبيعات", Debit: 1250},
			{AccountID: 120, AccountName: "المخزون", Credit: 1250},
		},
	}
}

func TestCreateDraftBalancedEntry(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	entry, err := svc.CreateDraft(context.Background(), balancedInput(uuid.New()))
	require.NoError(t, err)
	require.Equal(t, JournalStatusDraft, entry.Status)
	require.Equal(t, entry.TotalDebit, entry.TotalCredit)
	require.Equal(t, 1250.0, entry.TotalDebit)
	require.Equal(t, "SALES", entry.SourceModule)
	require.Len(t, repo.lines[entry.ID], 2)
}

func TestCreateDraftRejectsUnbalanced(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	input := balancedInput(uuid.New())
	input.Lines[1].Credit = 1200

	_, err := svc.CreateDraft(context.Background(), input)
	require.ErrorIs(t, err, accshared.ErrUnbalanced)
}

func TestCreateDraftRejectsSingleLine(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	input := balancedInput(uuid.New())
	input.Lines = input.Lines[:1]

	_, err := svc.CreateDraft(context.Background(), input)
	require.ErrorIs(t, err, accshared.ErrTooFewLines)
}

func TestCreateDraftRejectsBothSides(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	input := balancedInput(uuid.New())
	input.Lines[0].Credit = 10
	input.Lines[1].Credit = 1260

	_, err := svc.CreateDraft(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateDraftDuplicateSource(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	sourceID := uuid.New()

	_, err := svc.CreateDraft(context.Background(), balancedInput(sourceID))
	require.NoError(t, err)

	_, err = svc.CreateDraft(context.Background(), balancedInput(sourceID))
	require.ErrorIs(t, err, accshared.ErrSourceAlreadyLinked)
}

func TestPostAndVoidLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	entry, err := svc.CreateDraft(context.Background(), balancedInput(uuid.New()))
	require.NoError(t, err)

	posted, err := svc.Post(context.Background(), entry.ID, 7)
	require.NoError(t, err)
	require.Equal(t, JournalStatusPosted, posted.Status)

	// posting twice is rejected
	_, err = svc.Post(context.Background(), entry.ID, 7)
	require.ErrorIs(t, err, accshared.ErrInvalidStatus)

	voided, err := svc.Void(context.Background(), entry.ID, 7, "خطأ في الإدخال")
	require.NoError(t, err)
	require.Equal(t, JournalStatusVoid, voided.Status)

	_, err = svc.Void(context.Background(), entry.ID, 7, "")
	require.ErrorIs(t, err, accshared.ErrInvalidStatus)
}

func TestBuildCostEntrySale(t *testing.T) {
	input, ok := BuildCostEntry(CostEntryInput{
		SourceModule:   "sales",
		SourceID:       uuid.New(),
		DocumentNumber: "INV-1001",
		Date:           time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		TotalCost:      1130.004,
		DebitAccount:   AccountRef{ID: 501, Name: "تكلفة المبيعات"},
		CreditAccount:  AccountRef{ID: 120, Name: "المخزون"},
		CreatedBy:      7,
	})
	require.True(t, ok)
	require.NoError(t, input.Validate())
	require.Len(t, input.Lines, 2)
	require.Equal(t, 1130.0, input.Lines[0].Debit)
	require.Equal(t, int64(501), input.Lines[0].AccountID)
	require.Equal(t, 1130.0, input.Lines[1].Credit)
	require.Equal(t, int64(120), input.Lines[1].AccountID)
}

func TestBuildCostEntryZeroCostSkipped(t *testing.T) {
	_, ok := BuildCostEntry(CostEntryInput{TotalCost: 0})
	require.False(t, ok)
}
