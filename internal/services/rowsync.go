package services

import (
	"context"
	"errors"
	"fmt"

	"fondi/internal/amqp"
	"fondi/internal/core"
	"fondi/internal/storage"
)

// RowSync keeps income and transaction rows consistent with their mirrored
// ledger events: each nonzero row owns exactly one single-line event, a zero
// row owns none, and deleting a row deletes its event. Row and event always
// change inside one transaction; change notifications go out after commit.
type RowSync struct {
	storage    *storage.Repository
	amqpClient *amqp.Client
}

func NewRowSync(st *storage.Repository, amqpClient *amqp.Client) *RowSync {
	return &RowSync{
		storage:    st,
		amqpClient: amqpClient,
	}
}

func incomeMemo(id int64) string      { return fmt.Sprintf("Income %d", id) }
func transactionMemo(id int64) string { return fmt.Sprintf("Budget transaction %d", id) }

// SaveIncome upserts an income row and re-syncs its mirrored event. The
// event link on the stored row is authoritative; whatever the caller put in
// FundEventID is ignored.
func (s *RowSync) SaveIncome(ctx context.Context, in core.Income) (core.Income, error) {
	in.FundEventID = nil

	var saved core.Income
	var changes []ledgerChange
	err := s.storage.InTx(ctx, func(repo *storage.Repository) error {
		if in.ID != 0 {
			existing, err := repo.GetIncome(ctx, in.ID)
			if err != nil {
				return fmt.Errorf("load income: %w", err)
			}
			in.FundEventID = existing.FundEventID
		}

		var err error
		saved, err = repo.UpsertIncome(ctx, in)
		if err != nil {
			return fmt.Errorf("save income: %w", err)
		}

		if saved.AmountMinor == 0 {
			if saved.FundEventID != nil {
				if err := repo.SetIncomeEventLink(ctx, saved.ID, nil); err != nil {
					return fmt.Errorf("clear income event link: %w", err)
				}
				if err := deleteMirroredEvent(ctx, repo, saved.MonthKey, saved.FundEventID, &changes); err != nil {
					return err
				}
				saved.FundEventID = nil
			}
			return nil
		}

		eventID, err := postRowEvent(ctx, repo, saved.MonthKey, saved.IncomeDate,
			core.EventTypeIncome, incomeMemo(saved.ID), saved.AmountMinor, saved.FundEventID, &changes)
		if err != nil {
			return err
		}
		if saved.FundEventID == nil || *saved.FundEventID != eventID {
			if err := repo.SetIncomeEventLink(ctx, saved.ID, &eventID); err != nil {
				return fmt.Errorf("set income event link: %w", err)
			}
		}
		saved.FundEventID = &eventID
		return nil
	})
	if err != nil {
		return core.Income{}, err
	}
	publishChanges(ctx, s.amqpClient, changes)
	return saved, nil
}

// DeleteIncome removes an income row and its mirrored event together.
func (s *RowSync) DeleteIncome(ctx context.Context, id int64) error {
	var changes []ledgerChange
	err := s.storage.InTx(ctx, func(repo *storage.Repository) error {
		row, err := repo.GetIncome(ctx, id)
		if err != nil {
			return fmt.Errorf("load income: %w", err)
		}
		if err := repo.DeleteIncome(ctx, id); err != nil {
			return fmt.Errorf("delete income: %w", err)
		}
		return deleteMirroredEvent(ctx, repo, row.MonthKey, row.FundEventID, &changes)
	})
	if err != nil {
		return err
	}
	publishChanges(ctx, s.amqpClient, changes)
	return nil
}

// SaveTransaction mirrors SaveIncome for spending rows; the event delta is
// negative since spending leaves the cash asset.
func (s *RowSync) SaveTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.FundEventID = nil

	var saved core.Transaction
	var changes []ledgerChange
	err := s.storage.InTx(ctx, func(repo *storage.Repository) error {
		if t.ID != 0 {
			existing, err := repo.GetTransaction(ctx, t.ID)
			if err != nil {
				return fmt.Errorf("load transaction: %w", err)
			}
			t.FundEventID = existing.FundEventID
		}

		var err error
		saved, err = repo.UpsertTransaction(ctx, t)
		if err != nil {
			return fmt.Errorf("save transaction: %w", err)
		}

		if saved.AmountMinor == 0 {
			if saved.FundEventID != nil {
				if err := repo.SetTransactionEventLink(ctx, saved.ID, nil); err != nil {
					return fmt.Errorf("clear transaction event link: %w", err)
				}
				if err := deleteMirroredEvent(ctx, repo, saved.MonthKey, saved.FundEventID, &changes); err != nil {
					return err
				}
				saved.FundEventID = nil
			}
			return nil
		}

		eventID, err := postRowEvent(ctx, repo, saved.MonthKey, saved.TxDate,
			core.EventTypeBudgetTransaction, transactionMemo(saved.ID), -saved.AmountMinor, saved.FundEventID, &changes)
		if err != nil {
			return err
		}
		if saved.FundEventID == nil || *saved.FundEventID != eventID {
			if err := repo.SetTransactionEventLink(ctx, saved.ID, &eventID); err != nil {
				return fmt.Errorf("set transaction event link: %w", err)
			}
		}
		saved.FundEventID = &eventID
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	publishChanges(ctx, s.amqpClient, changes)
	return saved, nil
}

// DeleteTransaction removes a spending row and its mirrored event together.
func (s *RowSync) DeleteTransaction(ctx context.Context, id int64) error {
	var changes []ledgerChange
	err := s.storage.InTx(ctx, func(repo *storage.Repository) error {
		row, err := repo.GetTransaction(ctx, id)
		if err != nil {
			return fmt.Errorf("load transaction: %w", err)
		}
		if err := repo.DeleteTransaction(ctx, id); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		return deleteMirroredEvent(ctx, repo, row.MonthKey, row.FundEventID, &changes)
	})
	if err != nil {
		return err
	}
	publishChanges(ctx, s.amqpClient, changes)
	return nil
}

// postRowEvent writes the single-line event mirroring a row. The budget of
// the row's month decides which fund and cash asset the money posts to;
// reusing an existing linked event id keeps the event's history intact.
func postRowEvent(ctx context.Context, repo *storage.Repository, monthKey core.MonthKey, date core.Date, typeName, memo string, deltaMinor int64, existingLink *string, changes *[]ledgerChange) (string, error) {
	budget, err := repo.GetBudgetByMonthKey(ctx, monthKey)
	if err != nil {
		return "", fmt.Errorf("load budget for %s: %w", monthKey, err)
	}
	asset, err := NewCashResolver(repo).ResolveOrCreateCashAsset(ctx, budget.SpendingFundID, budget.SpendingAssetID)
	if err != nil {
		return "", fmt.Errorf("resolve spending asset: %w", err)
	}
	typ, err := repo.EnsureEventType(ctx, typeName)
	if err != nil {
		return "", fmt.Errorf("ensure event type: %w", err)
	}

	ev := core.FundEvent{EventTypeID: typ.ID, EventDate: date, Memo: memo}
	if existingLink != nil {
		ev.ID = *existingLink
	}
	stored, _, err := repo.UpsertEvent(ctx, ev, []core.FundEventLine{
		core.NewAssetMoneyLine(asset.ID, deltaMinor),
	})
	if err != nil {
		return "", fmt.Errorf("post row event: %w", err)
	}

	*changes = append(*changes, ledgerChange{eventID: stored.ID, change: amqp.ChangeUpserted, monthKey: monthKey})
	return stored.ID, nil
}

// deleteMirroredEvent deletes a row's mirrored event if the link is set. The
// caller must have removed or unlinked the row already. A link pointing at an
// already-deleted event is tolerated.
func deleteMirroredEvent(ctx context.Context, repo *storage.Repository, monthKey core.MonthKey, link *string, changes *[]ledgerChange) error {
	if link == nil {
		return nil
	}
	if err := repo.DeleteEvent(ctx, *link); err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("delete mirrored event %s: %w", *link, err)
	}
	*changes = append(*changes, ledgerChange{eventID: *link, change: amqp.ChangeDeleted, monthKey: monthKey})
	return nil
}
