package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	accshared "github.com/mizan-erp/mizan-erp/internal/accounting/shared"
	internalShared "github.com/mizan-erp/mizan-erp/internal/shared"
)

type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (JournalEntry, error) {
	return s.repo.GetWithLines(ctx, id)
}

// CreateDraft validates and persists a balanced entry in DRAFT status. When
// the input names a source document, the entry is linked to it and a second
// attempt for the same source fails with ErrSourceAlreadyLinked.
func (s *Service) CreateDraft(ctx context.Context, input DraftInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	input.SourceModule = normalizeModule(input.SourceModule)

	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.InsertEntry(ctx, input)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, input.Lines); err != nil {
			return err
		}
		if input.SourceModule != "" {
			if err := tx.LinkSource(ctx, input.SourceModule, input.SourceID, inserted.ID); err != nil {
				if errors.Is(err, accshared.ErrSourceConflict) {
					return accshared.ErrSourceAlreadyLinked
				}
				return err
			}
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}

	s.recordAudit(ctx, input.CreatedBy, "journal.create", entry, map[string]any{
		"number":        entry.Number,
		"source_module": input.SourceModule,
		"total_debit":   entry.TotalDebit,
	})
	return entry, nil
}

// Post moves a draft entry to POSTED. Only drafts can be posted.
func (s *Service) Post(ctx context.Context, id, actorID int64) (JournalEntry, error) {
	entry, err := s.transition(ctx, id, JournalStatusDraft, JournalStatusPosted)
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, actorID, "journal.post", entry, map[string]any{"number": entry.Number})
	return entry, nil
}

// Void cancels a posted entry. Drafts are deleted-in-place by voiding too;
// a void entry is terminal.
func (s *Service) Void(ctx context.Context, id, actorID int64, reason string) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == JournalStatusVoid {
			return accshared.ErrInvalidStatus
		}
		if err := tx.UpdateStatus(ctx, id, JournalStatusVoid); err != nil {
			return err
		}
		entry = current
		entry.Status = JournalStatusVoid
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, actorID, "journal.void", entry, map[string]any{
		"number": entry.Number,
		"reason": reason,
	})
	return entry, nil
}

func (s *Service) transition(ctx context.Context, id int64, from, to JournalStatus) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != from {
			return accshared.ErrInvalidStatus
		}
		if err := tx.UpdateStatus(ctx, id, to); err != nil {
			return err
		}
		entry = current
		entry.Status = to
		return nil
	})
	return entry, err
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entry JournalEntry, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entry.ID),
		Meta:     meta,
		At:       s.now(),
	})
}
