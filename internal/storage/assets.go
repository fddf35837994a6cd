package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"fondi/internal/core"
)

const assetColumns = `id, fund_id, account_id, name, kind, currency, ticker,
	counterparty, interest_rate_bps, issue_date, maturity_date, created_at, updated_at`

func (r *Repository) GetAsset(ctx context.Context, id int64) (core.Asset, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Asset{}, &core.NotFoundError{Entity: "asset", ID: strconv.FormatInt(id, 10)}
	}
	return a, err
}

func (r *Repository) ListAssetsByFund(ctx context.Context, fundID int64) ([]core.Asset, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE fund_id = ? ORDER BY name`, fundID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []core.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListCashAssetsByFund returns the fund's CASH assets, the set the cash
// resolver disambiguates over.
func (r *Repository) ListCashAssetsByFund(ctx context.Context, fundID int64) ([]core.Asset, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE fund_id = ? AND kind = ? ORDER BY id`,
		fundID, string(core.AssetCash))
	if err != nil {
		return nil, fmt.Errorf("list cash assets: %w", err)
	}
	defer rows.Close()

	var out []core.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) UpsertAsset(ctx context.Context, a core.Asset) (core.Asset, error) {
	if err := a.Validate(); err != nil {
		return core.Asset{}, err
	}
	var (
		currency, ticker, counterparty      sql.NullString
		interestRateBps                     sql.NullInt64
		issueDate, maturityDate             sql.NullString
	)
	switch a.Kind {
	case core.AssetCash:
		currency = sql.NullString{String: a.Cash.Currency, Valid: true}
	case core.AssetStock:
		ticker = sql.NullString{String: a.Stock.Ticker, Valid: true}
	case core.AssetNote:
		counterparty = sql.NullString{String: a.Note.Counterparty, Valid: true}
		interestRateBps = sql.NullInt64{Int64: a.Note.InterestRateBps, Valid: true}
		if !a.Note.IssueDate.IsZero() {
			issueDate = sql.NullString{String: a.Note.IssueDate.ISO(), Valid: true}
		}
		if !a.Note.MaturityDate.IsZero() {
			maturityDate = sql.NullString{String: a.Note.MaturityDate.ISO(), Valid: true}
		}
	}

	ts := now()
	if a.ID == 0 {
		res, err := r.q.ExecContext(ctx,
			`INSERT INTO assets (fund_id, account_id, name, kind, currency, ticker,
				counterparty, interest_rate_bps, issue_date, maturity_date, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.FundID, a.AccountID, a.Name, string(a.Kind), currency, ticker,
			counterparty, interestRateBps, issueDate, maturityDate, formatTime(ts), formatTime(ts))
		if err != nil {
			return core.Asset{}, fmt.Errorf("insert asset: %w", err)
		}
		a.ID, _ = res.LastInsertId()
		a.CreatedAt, a.UpdatedAt = ts, ts
		return a, nil
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE assets SET fund_id = ?, account_id = ?, name = ?, kind = ?, currency = ?,
			ticker = ?, counterparty = ?, interest_rate_bps = ?, issue_date = ?,
			maturity_date = ?, updated_at = ?
		 WHERE id = ?`,
		a.FundID, a.AccountID, a.Name, string(a.Kind), currency, ticker,
		counterparty, interestRateBps, issueDate, maturityDate, formatTime(ts), a.ID)
	if err != nil {
		return core.Asset{}, fmt.Errorf("update asset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Asset{}, &core.NotFoundError{Entity: "asset", ID: strconv.FormatInt(a.ID, 10)}
	}
	return r.GetAsset(ctx, a.ID)
}

func (r *Repository) DeleteAsset(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "assets", "asset", id)
}

// FirstAccount returns the oldest account in the system, used as the
// currency fallback when auto-creating a cash asset in an empty fund.
func (r *Repository) FirstAccount(ctx context.Context) (core.Account, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, name, currency, notes, created_at, updated_at FROM accounts ORDER BY id LIMIT 1`)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, &core.NotFoundError{Entity: "account", ID: "first"}
	}
	return a, err
}

const liabilityColumns = `id, fund_id, account_id, name, kind, principal_minor,
	loan_maturity_date, payment_minor, credit_limit_minor, due_day, minimum_payment_minor,
	created_at, updated_at`

func (r *Repository) GetLiability(ctx context.Context, id int64) (core.Liability, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+liabilityColumns+` FROM liabilities WHERE id = ?`, id)
	l, err := scanLiability(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Liability{}, &core.NotFoundError{Entity: "liability", ID: strconv.FormatInt(id, 10)}
	}
	return l, err
}

func (r *Repository) ListLiabilitiesByFund(ctx context.Context, fundID int64) ([]core.Liability, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+liabilityColumns+` FROM liabilities WHERE fund_id = ? ORDER BY name`, fundID)
	if err != nil {
		return nil, fmt.Errorf("list liabilities: %w", err)
	}
	defer rows.Close()

	var out []core.Liability
	for rows.Next() {
		l, err := scanLiability(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repository) UpsertLiability(ctx context.Context, l core.Liability) (core.Liability, error) {
	if err := l.Validate(); err != nil {
		return core.Liability{}, err
	}
	var (
		principal, payment, limit, minPayment sql.NullInt64
		dueDay                                sql.NullInt64
		loanMaturity                          sql.NullString
	)
	switch l.Kind {
	case core.LiabilityLoan:
		principal = sql.NullInt64{Int64: l.Loan.PrincipalMinor, Valid: true}
		payment = sql.NullInt64{Int64: l.Loan.PaymentMinor, Valid: true}
		if !l.Loan.MaturityDate.IsZero() {
			loanMaturity = sql.NullString{String: l.Loan.MaturityDate.ISO(), Valid: true}
		}
	case core.LiabilityCredit:
		limit = sql.NullInt64{Int64: l.Credit.LimitMinor, Valid: true}
		dueDay = sql.NullInt64{Int64: int64(l.Credit.DueDay), Valid: true}
		minPayment = sql.NullInt64{Int64: l.Credit.MinimumPaymentMinor, Valid: true}
	}

	ts := now()
	if l.ID == 0 {
		res, err := r.q.ExecContext(ctx,
			`INSERT INTO liabilities (fund_id, account_id, name, kind, principal_minor,
				loan_maturity_date, payment_minor, credit_limit_minor, due_day,
				minimum_payment_minor, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.FundID, l.AccountID, l.Name, string(l.Kind), principal, loanMaturity,
			payment, limit, dueDay, minPayment, formatTime(ts), formatTime(ts))
		if err != nil {
			return core.Liability{}, fmt.Errorf("insert liability: %w", err)
		}
		l.ID, _ = res.LastInsertId()
		l.CreatedAt, l.UpdatedAt = ts, ts
		return l, nil
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE liabilities SET fund_id = ?, account_id = ?, name = ?, kind = ?,
			principal_minor = ?, loan_maturity_date = ?, payment_minor = ?,
			credit_limit_minor = ?, due_day = ?, minimum_payment_minor = ?, updated_at = ?
		 WHERE id = ?`,
		l.FundID, l.AccountID, l.Name, string(l.Kind), principal, loanMaturity,
		payment, limit, dueDay, minPayment, formatTime(ts), l.ID)
	if err != nil {
		return core.Liability{}, fmt.Errorf("update liability: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Liability{}, &core.NotFoundError{Entity: "liability", ID: strconv.FormatInt(l.ID, 10)}
	}
	return r.GetLiability(ctx, l.ID)
}

func (r *Repository) DeleteLiability(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "liabilities", "liability", id)
}

func scanAsset(row rowScanner) (core.Asset, error) {
	var (
		a                              core.Asset
		kind                           string
		currency, ticker, counterparty sql.NullString
		interestRateBps                sql.NullInt64
		issueDate, maturityDate        sql.NullString
		created, updated               string
	)
	err := row.Scan(&a.ID, &a.FundID, &a.AccountID, &a.Name, &kind, &currency, &ticker,
		&counterparty, &interestRateBps, &issueDate, &maturityDate, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Asset{}, err
		}
		return core.Asset{}, fmt.Errorf("scan asset: %w", err)
	}
	a.Kind = core.AssetKind(kind)
	switch a.Kind {
	case core.AssetCash:
		a.Cash = &core.CashDetails{Currency: currency.String}
	case core.AssetStock:
		a.Stock = &core.StockDetails{Ticker: ticker.String}
	case core.AssetNote:
		note := &core.NoteDetails{
			Counterparty:    counterparty.String,
			InterestRateBps: interestRateBps.Int64,
		}
		if issueDate.Valid {
			note.IssueDate, _ = core.ParseISODate(issueDate.String)
		}
		if maturityDate.Valid {
			note.MaturityDate, _ = core.ParseISODate(maturityDate.String)
		}
		a.Note = note
	}
	a.CreatedAt, a.UpdatedAt = parseTime(created), parseTime(updated)
	return a, nil
}

func scanLiability(row rowScanner) (core.Liability, error) {
	var (
		l                                     core.Liability
		kind                                  string
		principal, payment, limit, minPayment sql.NullInt64
		dueDay                                sql.NullInt64
		loanMaturity                          sql.NullString
		created, updated                      string
	)
	err := row.Scan(&l.ID, &l.FundID, &l.AccountID, &l.Name, &kind, &principal,
		&loanMaturity, &payment, &limit, &dueDay, &minPayment, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Liability{}, err
		}
		return core.Liability{}, fmt.Errorf("scan liability: %w", err)
	}
	l.Kind = core.LiabilityKind(kind)
	switch l.Kind {
	case core.LiabilityLoan:
		loan := &core.LoanDetails{
			PrincipalMinor: principal.Int64,
			PaymentMinor:   payment.Int64,
		}
		if loanMaturity.Valid {
			loan.MaturityDate, _ = core.ParseISODate(loanMaturity.String)
		}
		l.Loan = loan
	case core.LiabilityCredit:
		l.Credit = &core.CreditDetails{
			LimitMinor:          limit.Int64,
			DueDay:              int(dueDay.Int64),
			MinimumPaymentMinor: minPayment.Int64,
		}
	}
	l.CreatedAt, l.UpdatedAt = parseTime(created), parseTime(updated)
	return l, nil
}
