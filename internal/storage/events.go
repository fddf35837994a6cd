package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"fondi/internal/core"
)

// UpsertEvent writes an event header and replaces its lines with the given
// payload, all inside one transaction.
//
// Line identity follows the reconciliation protocol: requested id, else the
// line currently at the same position, else a fresh uuid. LineNo is always
// reassigned from payload order. createdAt survives for any line whose
// resolved id already existed on the event; every other timestamp is
// refreshed. Lines not present in the payload are removed; an empty payload
// removes them all. Reusing a line id that belongs to a different event is
// rejected before anything is written.
func (r *Repository) UpsertEvent(ctx context.Context, ev core.FundEvent, lines []core.FundEventLine) (core.FundEvent, []core.FundEventLine, error) {
	if err := ev.Validate(); err != nil {
		return core.FundEvent{}, nil, err
	}
	for i, l := range lines {
		if err := l.Validate(); err != nil {
			return core.FundEvent{}, nil, fmt.Errorf("line %d: %w", i, err)
		}
	}

	ts := now()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	err := r.withTx(ctx, func(tx querier) error {
		var created string
		err := tx.QueryRowContext(ctx,
			`SELECT created_at FROM fund_event WHERE id = ?`, ev.ID).Scan(&created)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			ev.CreatedAt = ts
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO fund_event (id, event_type_id, event_date, memo, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				ev.ID, ev.EventTypeID, ev.EventDate.ISO(), ev.Memo, formatTime(ts), formatTime(ts)); err != nil {
				return fmt.Errorf("insert event: %w", err)
			}
		case err != nil:
			return fmt.Errorf("load event: %w", err)
		default:
			ev.CreatedAt = parseTime(created)
			if _, err := tx.ExecContext(ctx,
				`UPDATE fund_event SET event_type_id = ?, event_date = ?, memo = ?, updated_at = ?
				 WHERE id = ?`,
				ev.EventTypeID, ev.EventDate.ISO(), ev.Memo, formatTime(ts), ev.ID); err != nil {
				return fmt.Errorf("update event: %w", err)
			}
		}
		ev.UpdatedAt = ts

		existing, err := loadLines(ctx, tx, ev.ID)
		if err != nil {
			return err
		}
		plan, err := reconcileLines(existing, lines, uuid.NewString)
		if err != nil {
			return err
		}

		// A resolved id that lives on another event would silently steal
		// that event's history; reject it instead.
		for _, w := range plan.Writes {
			if w.Existing {
				continue
			}
			var owner string
			err := tx.QueryRowContext(ctx,
				`SELECT event_id FROM fund_event_line WHERE id = ?`, w.Line.ID).Scan(&owner)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return fmt.Errorf("check line owner: %w", err)
			}
			if owner != ev.ID {
				return &core.LineReuseError{LineID: w.Line.ID, OwnerEventID: owner}
			}
		}

		// Replace wholesale: deleting and re-inserting sidesteps transient
		// (event_id, line_no) collisions when lines are reordered.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM fund_event_line WHERE event_id = ?`, ev.ID); err != nil {
			return fmt.Errorf("clear lines: %w", err)
		}
		for i := range plan.Writes {
			w := &plan.Writes[i]
			w.Line.EventID = ev.ID
			if !w.Existing {
				w.Line.CreatedAt = ts
			}
			w.Line.UpdatedAt = ts
			if err := insertLine(ctx, tx, w.Line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.FundEvent{}, nil, err
	}

	slog.DebugContext(ctx, "Event upserted", "event_id", ev.ID, "lines", len(lines))
	return r.GetEvent(ctx, ev.ID)
}

// GetEvent returns the event and its lines ordered by line number.
func (r *Repository) GetEvent(ctx context.Context, eventID string) (core.FundEvent, []core.FundEventLine, error) {
	var (
		ev               core.FundEvent
		date             string
		created, updated string
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT id, event_type_id, event_date, memo, created_at, updated_at
		 FROM fund_event WHERE id = ?`, eventID).
		Scan(&ev.ID, &ev.EventTypeID, &date, &ev.Memo, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FundEvent{}, nil, &core.NotFoundError{Entity: "event", ID: eventID}
	}
	if err != nil {
		return core.FundEvent{}, nil, fmt.Errorf("get event: %w", err)
	}
	ev.EventDate, _ = core.ParseISODate(date)
	ev.CreatedAt, ev.UpdatedAt = parseTime(created), parseTime(updated)

	lines, err := loadLines(ctx, r.q, eventID)
	if err != nil {
		return core.FundEvent{}, nil, err
	}
	return ev, lines, nil
}

// DeleteEvent removes an event; its lines cascade.
func (r *Repository) DeleteEvent(ctx context.Context, eventID string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM fund_event WHERE id = ?`, eventID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Entity: "event", ID: eventID}
	}
	return nil
}

// ListEventIDsByTypeAndMemo finds events by exact type and memo match. The
// engines generate the memo strings they later look up, which keeps the
// exact match safe; user free text never reaches this query.
func (r *Repository) ListEventIDsByTypeAndMemo(ctx context.Context, eventTypeID int64, memo string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id FROM fund_event WHERE event_type_id = ? AND memo = ? ORDER BY id`,
		eventTypeID, memo)
	if err != nil {
		return nil, fmt.Errorf("list events by memo: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func loadLines(ctx context.Context, q querier, eventID string) ([]core.FundEventLine, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, event_id, line_no, asset_id, liability_id, line_kind, quantity_delta,
			money_delta, unit_price_minor, fee_minor, notes, created_at, updated_at
		 FROM fund_event_line WHERE event_id = ? ORDER BY line_no`, eventID)
	if err != nil {
		return nil, fmt.Errorf("load lines: %w", err)
	}
	defer rows.Close()

	var out []core.FundEventLine
	for rows.Next() {
		var (
			l                      core.FundEventLine
			kind                   string
			assetID, liabilityID   sql.NullInt64
			quantityD, moneyD      sql.NullInt64
			unitPrice, fee         sql.NullInt64
			created, updated       string
		)
		if err := rows.Scan(&l.ID, &l.EventID, &l.LineNo, &assetID, &liabilityID, &kind,
			&quantityD, &moneyD, &unitPrice, &fee, &l.Notes, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		if assetID.Valid {
			l.Target = core.AssetTarget(assetID.Int64)
		} else {
			l.Target = core.LiabilityTarget(liabilityID.Int64)
		}
		l.Kind = core.LineKind(kind)
		l.QuantityDelta = quantityD.Int64
		l.MoneyDelta = moneyD.Int64
		if unitPrice.Valid {
			v := unitPrice.Int64
			l.UnitPriceMinor = &v
		}
		if fee.Valid {
			v := fee.Int64
			l.FeeMinor = &v
		}
		l.CreatedAt, l.UpdatedAt = parseTime(created), parseTime(updated)
		out = append(out, l)
	}
	return out, rows.Err()
}

func insertLine(ctx context.Context, tx querier, l core.FundEventLine) error {
	var assetID, liabilityID, quantityD, moneyD sql.NullInt64
	if id, ok := l.Target.AssetID(); ok {
		assetID = sql.NullInt64{Int64: id, Valid: true}
	}
	if id, ok := l.Target.LiabilityID(); ok {
		liabilityID = sql.NullInt64{Int64: id, Valid: true}
	}
	switch l.Kind {
	case core.LineAssetQuantity:
		quantityD = sql.NullInt64{Int64: l.QuantityDelta, Valid: true}
	case core.LineAssetMoney, core.LineLiabilityMoney:
		moneyD = sql.NullInt64{Int64: l.MoneyDelta, Valid: true}
	}
	var unitPrice, fee sql.NullInt64
	if l.UnitPriceMinor != nil {
		unitPrice = sql.NullInt64{Int64: *l.UnitPriceMinor, Valid: true}
	}
	if l.FeeMinor != nil {
		fee = sql.NullInt64{Int64: *l.FeeMinor, Valid: true}
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO fund_event_line (id, event_id, line_no, asset_id, liability_id,
			line_kind, quantity_delta, money_delta, unit_price_minor, fee_minor, notes,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.EventID, l.LineNo, assetID, liabilityID, string(l.Kind),
		quantityD, moneyD, unitPrice, fee, l.Notes,
		formatTime(l.CreatedAt), formatTime(l.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert line %s: %w", l.ID, err)
	}
	return nil
}
