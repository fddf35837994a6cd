package http

import (
	"fmt"
	"time"

	"fondi/internal/core"
	"fondi/internal/services"
)

// The wire types flatten the core sum types into tagged JSON objects.
// Mapping back re-runs the core constructors, so invariant violations are
// caught before anything touches storage.

type fundJSON struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name" validate:"required"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func fundToJSON(f core.Fund) fundJSON {
	return fundJSON{
		ID: f.ID, Name: f.Name, Notes: f.Notes,
		CreatedAt: timeJSON(f.CreatedAt), UpdatedAt: timeJSON(f.UpdatedAt),
	}
}

func (j fundJSON) toCore() core.Fund {
	return core.Fund{ID: j.ID, Name: j.Name, Notes: j.Notes}
}

type accountJSON struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name" validate:"required"`
	Currency  string `json:"currency" validate:"required,len=3,uppercase"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func accountToJSON(a core.Account) accountJSON {
	return accountJSON{
		ID: a.ID, Name: a.Name, Currency: a.Currency, Notes: a.Notes,
		CreatedAt: timeJSON(a.CreatedAt), UpdatedAt: timeJSON(a.UpdatedAt),
	}
}

func (j accountJSON) toCore() core.Account {
	return core.Account{ID: j.ID, Name: j.Name, Currency: j.Currency, Notes: j.Notes}
}

type categoryJSON struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name" validate:"required"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func categoryToJSON(c core.Category) categoryJSON {
	return categoryJSON{
		ID: c.ID, Name: c.Name,
		CreatedAt: timeJSON(c.CreatedAt), UpdatedAt: timeJSON(c.UpdatedAt),
	}
}

type eventTypeJSON struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type cashJSON struct {
	Currency string `json:"currency" validate:"required,len=3,uppercase"`
}

type stockJSON struct {
	Ticker string `json:"ticker" validate:"required"`
}

type noteJSON struct {
	Counterparty    string `json:"counterparty" validate:"required"`
	InterestRateBps int64  `json:"interestRateBps"`
	IssueDate       string `json:"issueDate" validate:"required"`
	MaturityDate    string `json:"maturityDate" validate:"required"`
}

type assetJSON struct {
	ID        int64      `json:"id,omitempty"`
	FundID    int64      `json:"fundId" validate:"required"`
	AccountID int64      `json:"accountId" validate:"required"`
	Name      string     `json:"name" validate:"required"`
	Kind      string     `json:"kind" validate:"required,oneof=CASH STOCK NOTE"`
	Cash      *cashJSON  `json:"cash,omitempty"`
	Stock     *stockJSON `json:"stock,omitempty"`
	Note      *noteJSON  `json:"note,omitempty"`
	CreatedAt string     `json:"createdAt,omitempty"`
	UpdatedAt string     `json:"updatedAt,omitempty"`
}

func assetToJSON(a core.Asset) assetJSON {
	j := assetJSON{
		ID: a.ID, FundID: a.FundID, AccountID: a.AccountID,
		Name: a.Name, Kind: string(a.Kind),
		CreatedAt: timeJSON(a.CreatedAt), UpdatedAt: timeJSON(a.UpdatedAt),
	}
	if a.Cash != nil {
		j.Cash = &cashJSON{Currency: a.Cash.Currency}
	}
	if a.Stock != nil {
		j.Stock = &stockJSON{Ticker: a.Stock.Ticker}
	}
	if a.Note != nil {
		j.Note = &noteJSON{
			Counterparty:    a.Note.Counterparty,
			InterestRateBps: a.Note.InterestRateBps,
			IssueDate:       a.Note.IssueDate.ISO(),
			MaturityDate:    a.Note.MaturityDate.ISO(),
		}
	}
	return j
}

func (j assetJSON) toCore() (core.Asset, error) {
	a := core.Asset{
		ID: j.ID, FundID: j.FundID, AccountID: j.AccountID,
		Name: j.Name, Kind: core.AssetKind(j.Kind),
	}
	if j.Cash != nil {
		a.Cash = &core.CashDetails{Currency: j.Cash.Currency}
	}
	if j.Stock != nil {
		a.Stock = &core.StockDetails{Ticker: j.Stock.Ticker}
	}
	if j.Note != nil {
		issue, err := core.ParseISODate(j.Note.IssueDate)
		if err != nil {
			return core.Asset{}, fmt.Errorf("note issue date: %w", err)
		}
		maturity, err := core.ParseISODate(j.Note.MaturityDate)
		if err != nil {
			return core.Asset{}, fmt.Errorf("note maturity date: %w", err)
		}
		a.Note = &core.NoteDetails{
			Counterparty:    j.Note.Counterparty,
			InterestRateBps: j.Note.InterestRateBps,
			IssueDate:       issue,
			MaturityDate:    maturity,
		}
	}
	return a, nil
}

type loanJSON struct {
	PrincipalMinor int64  `json:"principalMinor" validate:"min=0"`
	MaturityDate   string `json:"maturityDate" validate:"required"`
	PaymentMinor   int64  `json:"paymentMinor" validate:"min=0"`
}

type creditJSON struct {
	LimitMinor          int64 `json:"limitMinor" validate:"min=0"`
	DueDay              int   `json:"dueDay" validate:"min=1,max=31"`
	MinimumPaymentMinor int64 `json:"minimumPaymentMinor" validate:"min=0"`
}

type liabilityJSON struct {
	ID        int64       `json:"id,omitempty"`
	FundID    int64       `json:"fundId" validate:"required"`
	AccountID int64       `json:"accountId" validate:"required"`
	Name      string      `json:"name" validate:"required"`
	Kind      string      `json:"kind" validate:"required,oneof=LOAN CREDIT"`
	Loan      *loanJSON   `json:"loan,omitempty"`
	Credit    *creditJSON `json:"credit,omitempty"`
	CreatedAt string      `json:"createdAt,omitempty"`
	UpdatedAt string      `json:"updatedAt,omitempty"`
}

func liabilityToJSON(l core.Liability) liabilityJSON {
	j := liabilityJSON{
		ID: l.ID, FundID: l.FundID, AccountID: l.AccountID,
		Name: l.Name, Kind: string(l.Kind),
		CreatedAt: timeJSON(l.CreatedAt), UpdatedAt: timeJSON(l.UpdatedAt),
	}
	if l.Loan != nil {
		j.Loan = &loanJSON{
			PrincipalMinor: l.Loan.PrincipalMinor,
			MaturityDate:   l.Loan.MaturityDate.ISO(),
			PaymentMinor:   l.Loan.PaymentMinor,
		}
	}
	if l.Credit != nil {
		j.Credit = &creditJSON{
			LimitMinor:          l.Credit.LimitMinor,
			DueDay:              l.Credit.DueDay,
			MinimumPaymentMinor: l.Credit.MinimumPaymentMinor,
		}
	}
	return j
}

func (j liabilityJSON) toCore() (core.Liability, error) {
	l := core.Liability{
		ID: j.ID, FundID: j.FundID, AccountID: j.AccountID,
		Name: j.Name, Kind: core.LiabilityKind(j.Kind),
	}
	if j.Loan != nil {
		maturity, err := core.ParseISODate(j.Loan.MaturityDate)
		if err != nil {
			return core.Liability{}, fmt.Errorf("loan maturity date: %w", err)
		}
		l.Loan = &core.LoanDetails{
			PrincipalMinor: j.Loan.PrincipalMinor,
			MaturityDate:   maturity,
			PaymentMinor:   j.Loan.PaymentMinor,
		}
	}
	if j.Credit != nil {
		l.Credit = &core.CreditDetails{
			LimitMinor:          j.Credit.LimitMinor,
			DueDay:              j.Credit.DueDay,
			MinimumPaymentMinor: j.Credit.MinimumPaymentMinor,
		}
	}
	return l, nil
}

type eventLineJSON struct {
	ID             string `json:"id,omitempty"`
	AssetID        int64  `json:"assetId,omitempty"`
	LiabilityID    int64  `json:"liabilityId,omitempty"`
	Kind           string `json:"kind" validate:"required,oneof=ASSET_QUANTITY ASSET_MONEY LIABILITY_MONEY"`
	QuantityDelta  int64  `json:"quantityDelta,omitempty"`
	MoneyDelta     int64  `json:"moneyDelta,omitempty"`
	UnitPriceMinor *int64 `json:"unitPriceMinor,omitempty"`
	FeeMinor       *int64 `json:"feeMinor,omitempty"`
	Notes          string `json:"notes,omitempty"`
	LineNo         int    `json:"lineNo"`
	CreatedAt      string `json:"createdAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

func eventLineToJSON(l core.FundEventLine) eventLineJSON {
	j := eventLineJSON{
		ID: l.ID, Kind: string(l.Kind), LineNo: l.LineNo,
		QuantityDelta: l.QuantityDelta, MoneyDelta: l.MoneyDelta,
		UnitPriceMinor: l.UnitPriceMinor, FeeMinor: l.FeeMinor, Notes: l.Notes,
		CreatedAt: timeJSON(l.CreatedAt), UpdatedAt: timeJSON(l.UpdatedAt),
	}
	if id, ok := l.Target.AssetID(); ok {
		j.AssetID = id
	}
	if id, ok := l.Target.LiabilityID(); ok {
		j.LiabilityID = id
	}
	return j
}

func (j eventLineJSON) toCore() core.FundEventLine {
	var target core.LineTarget
	if j.AssetID != 0 {
		target = core.AssetTarget(j.AssetID)
	} else if j.LiabilityID != 0 {
		target = core.LiabilityTarget(j.LiabilityID)
	}
	return core.FundEventLine{
		ID:             j.ID,
		Target:         target,
		Kind:           core.LineKind(j.Kind),
		QuantityDelta:  j.QuantityDelta,
		MoneyDelta:     j.MoneyDelta,
		UnitPriceMinor: j.UnitPriceMinor,
		FeeMinor:       j.FeeMinor,
		Notes:          j.Notes,
	}
}

type eventJSON struct {
	ID          string          `json:"id,omitempty"`
	EventTypeID int64           `json:"eventTypeId" validate:"required"`
	EventDate   string          `json:"eventDate" validate:"required"`
	Memo        string          `json:"memo,omitempty"`
	Lines       []eventLineJSON `json:"lines" validate:"dive"`
	CreatedAt   string          `json:"createdAt,omitempty"`
	UpdatedAt   string          `json:"updatedAt,omitempty"`
}

func eventToJSON(e core.FundEvent, lines []core.FundEventLine) eventJSON {
	j := eventJSON{
		ID: e.ID, EventTypeID: e.EventTypeID, EventDate: e.EventDate.ISO(), Memo: e.Memo,
		Lines:     make([]eventLineJSON, 0, len(lines)),
		CreatedAt: timeJSON(e.CreatedAt), UpdatedAt: timeJSON(e.UpdatedAt),
	}
	for _, l := range lines {
		j.Lines = append(j.Lines, eventLineToJSON(l))
	}
	return j
}

type allocationJSON struct {
	Kind        string  `json:"kind" validate:"required,oneof=FIXED PERCENT"`
	AmountMinor int64   `json:"amountMinor,omitempty"`
	Percent     float64 `json:"percent,omitempty"`
}

func allocationToJSON(a core.Allocation) allocationJSON {
	return allocationJSON{
		Kind:        string(a.Kind()),
		AmountMinor: a.AmountMinor(),
		Percent:     a.Percent(),
	}
}

func (j allocationJSON) toCore() core.Allocation {
	if core.AllocationKind(j.Kind) == core.AllocationFixed {
		return core.FixedAllocation(j.AmountMinor)
	}
	return core.PercentAllocation(j.Percent)
}

type budgetLineJSON struct {
	CategoryID int64          `json:"categoryId" validate:"required"`
	Alloc      allocationJSON `json:"alloc" validate:"required"`
}

type budgetJSON struct {
	ID               int64            `json:"id,omitempty"`
	BudgetMonthKey   string           `json:"budgetMonthKey" validate:"required"`
	IncomeMonthKey   string           `json:"incomeMonthKey" validate:"required"`
	CapMinor         int64            `json:"capMinor" validate:"min=0"`
	Notes            string           `json:"notes,omitempty"`
	SurplusHandled   bool             `json:"surplusHandled"`
	LeftoversHandled bool             `json:"leftoversHandled"`
	SpendingFundID   int64            `json:"spendingFundId" validate:"required"`
	SpendingAssetID  *int64           `json:"spendingAssetId,omitempty"`
	OverageFundID    *int64           `json:"overageFundId,omitempty"`
	OverageAssetID   *int64           `json:"overageAssetId,omitempty"`
	Lines            []budgetLineJSON `json:"lines" validate:"dive"`
	CreatedAt        string           `json:"createdAt,omitempty"`
	UpdatedAt        string           `json:"updatedAt,omitempty"`
}

func budgetToJSON(b core.Budget, lines []core.BudgetLine) budgetJSON {
	j := budgetJSON{
		ID:               b.ID,
		BudgetMonthKey:   string(b.BudgetMonthKey),
		IncomeMonthKey:   string(b.IncomeMonthKey),
		CapMinor:         b.CapMinor,
		Notes:            b.Notes,
		SurplusHandled:   b.SurplusHandled,
		LeftoversHandled: b.LeftoversHandled,
		SpendingFundID:   b.SpendingFundID,
		SpendingAssetID:  b.SpendingAssetID,
		OverageFundID:    b.OverageFundID,
		OverageAssetID:   b.OverageAssetID,
		Lines:            make([]budgetLineJSON, 0, len(lines)),
		CreatedAt:        timeJSON(b.CreatedAt),
		UpdatedAt:        timeJSON(b.UpdatedAt),
	}
	for _, l := range lines {
		j.Lines = append(j.Lines, budgetLineJSON{CategoryID: l.CategoryID, Alloc: allocationToJSON(l.Alloc)})
	}
	return j
}

func (j budgetJSON) toCore() (core.Budget, []core.BudgetLine) {
	b := core.Budget{
		ID:              j.ID,
		BudgetMonthKey:  core.MonthKey(j.BudgetMonthKey),
		IncomeMonthKey:  core.MonthKey(j.IncomeMonthKey),
		CapMinor:        j.CapMinor,
		Notes:           j.Notes,
		SpendingFundID:  j.SpendingFundID,
		SpendingAssetID: j.SpendingAssetID,
		OverageFundID:   j.OverageFundID,
		OverageAssetID:  j.OverageAssetID,
	}
	lines := make([]core.BudgetLine, 0, len(j.Lines))
	for _, l := range j.Lines {
		lines = append(lines, core.BudgetLine{CategoryID: l.CategoryID, Alloc: l.Alloc.toCore()})
	}
	return b, lines
}

type ruleJSON struct {
	ID         int64          `json:"id,omitempty"`
	Source     string         `json:"source" validate:"required,oneof=SURPLUS CATEGORY"`
	CategoryID *int64         `json:"categoryId,omitempty"`
	FundID     int64          `json:"fundId" validate:"required"`
	AssetID    *int64         `json:"assetId,omitempty"`
	Alloc      allocationJSON `json:"alloc" validate:"required"`
}

func ruleToJSON(r core.DistributionRule) ruleJSON {
	return ruleJSON{
		ID:         r.ID,
		Source:     string(r.Source),
		CategoryID: r.CategoryID,
		FundID:     r.FundID,
		AssetID:    r.AssetID,
		Alloc:      allocationToJSON(r.Alloc),
	}
}

func (j ruleJSON) toCore(budgetID int64) core.DistributionRule {
	return core.DistributionRule{
		ID:         j.ID,
		BudgetID:   budgetID,
		Source:     core.DistributionSource(j.Source),
		CategoryID: j.CategoryID,
		FundID:     j.FundID,
		AssetID:    j.AssetID,
		Alloc:      j.Alloc.toCore(),
	}
}

type incomeJSON struct {
	ID          int64   `json:"id,omitempty"`
	MonthKey    string  `json:"monthKey" validate:"required"`
	IncomeDate  string  `json:"incomeDate" validate:"required"`
	Description string  `json:"description,omitempty"`
	AmountMinor int64   `json:"amountMinor" validate:"min=0"`
	FundEventID *string `json:"fundEventId,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty"`
	UpdatedAt   string  `json:"updatedAt,omitempty"`
}

func incomeToJSON(i core.Income) incomeJSON {
	return incomeJSON{
		ID: i.ID, MonthKey: string(i.MonthKey), IncomeDate: i.IncomeDate.ISO(),
		Description: i.Description, AmountMinor: i.AmountMinor, FundEventID: i.FundEventID,
		CreatedAt: timeJSON(i.CreatedAt), UpdatedAt: timeJSON(i.UpdatedAt),
	}
}

func (j incomeJSON) toCore() (core.Income, error) {
	date, err := core.ParseISODate(j.IncomeDate)
	if err != nil {
		return core.Income{}, fmt.Errorf("income date: %w", err)
	}
	return core.Income{
		ID:          j.ID,
		MonthKey:    core.MonthKey(j.MonthKey),
		IncomeDate:  date,
		Description: j.Description,
		AmountMinor: j.AmountMinor,
	}, nil
}

type transactionJSON struct {
	ID          int64   `json:"id,omitempty"`
	MonthKey    string  `json:"monthKey" validate:"required"`
	TxDate      string  `json:"txDate" validate:"required"`
	Description string  `json:"description,omitempty"`
	CategoryID  int64   `json:"categoryId" validate:"required"`
	AmountMinor int64   `json:"amountMinor" validate:"min=0"`
	FundEventID *string `json:"fundEventId,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty"`
	UpdatedAt   string  `json:"updatedAt,omitempty"`
}

func transactionToJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID: t.ID, MonthKey: string(t.MonthKey), TxDate: t.TxDate.ISO(),
		Description: t.Description, CategoryID: t.CategoryID,
		AmountMinor: t.AmountMinor, FundEventID: t.FundEventID,
		CreatedAt: timeJSON(t.CreatedAt), UpdatedAt: timeJSON(t.UpdatedAt),
	}
}

func (j transactionJSON) toCore() (core.Transaction, error) {
	date, err := core.ParseISODate(j.TxDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction date: %w", err)
	}
	return core.Transaction{
		ID:          j.ID,
		MonthKey:    core.MonthKey(j.MonthKey),
		TxDate:      date,
		Description: j.Description,
		CategoryID:  j.CategoryID,
		AmountMinor: j.AmountMinor,
	}, nil
}

type categoryReportJSON struct {
	CategoryID    int64  `json:"categoryId"`
	CategoryName  string `json:"categoryName"`
	PlannedMinor  int64  `json:"plannedMinor"`
	SpentMinor    int64  `json:"spentMinor"`
	LeftoverMinor int64  `json:"leftoverMinor"`
}

type monthReportJSON struct {
	BudgetMonthKey     string               `json:"budgetMonthKey"`
	IncomeMonthKey     string               `json:"incomeMonthKey"`
	CapMinor           int64                `json:"capMinor"`
	TotalIncomeMinor   int64                `json:"totalIncomeMinor"`
	SpendablePoolMinor int64                `json:"spendablePoolMinor"`
	PercentBaseMinor   int64                `json:"percentBaseMinor"`
	PlannedTotalMinor  int64                `json:"plannedTotalMinor"`
	SpentTotalMinor    int64                `json:"spentTotalMinor"`
	RemainingMinor     int64                `json:"remainingMinor"`
	SurplusBaseMinor   int64                `json:"surplusBaseMinor"`
	OverAllocated      bool                 `json:"overAllocated"`
	SurplusHandled     bool                 `json:"surplusHandled"`
	LeftoversHandled   bool                 `json:"leftoversHandled"`
	Categories         []categoryReportJSON `json:"categories"`
}

func monthReportToJSON(r services.MonthReport) monthReportJSON {
	j := monthReportJSON{
		BudgetMonthKey:     string(r.Budget.BudgetMonthKey),
		IncomeMonthKey:     string(r.Budget.IncomeMonthKey),
		CapMinor:           r.Budget.CapMinor,
		TotalIncomeMinor:   r.TotalIncomeMinor,
		SpendablePoolMinor: r.SpendablePoolMinor,
		PercentBaseMinor:   r.PercentBaseMinor,
		PlannedTotalMinor:  r.PlannedTotalMinor,
		SpentTotalMinor:    r.SpentTotalMinor,
		RemainingMinor:     r.RemainingMinor,
		SurplusBaseMinor:   r.SurplusBaseMinor,
		OverAllocated:      r.OverAllocated,
		SurplusHandled:     r.Budget.SurplusHandled,
		LeftoversHandled:   r.Budget.LeftoversHandled,
		Categories:         make([]categoryReportJSON, 0, len(r.Categories)),
	}
	for _, c := range r.Categories {
		j.Categories = append(j.Categories, categoryReportJSON{
			CategoryID:    c.CategoryID,
			CategoryName:  c.CategoryName,
			PlannedMinor:  c.PlannedMinor,
			SpentMinor:    c.SpentMinor,
			LeftoverMinor: c.LeftoverMinor,
		})
	}
	return j
}

type assetPositionJSON struct {
	Asset         assetJSON `json:"asset"`
	MoneyMinor    int64     `json:"moneyMinor"`
	QuantityMinor int64     `json:"quantityMinor"`
}

type liabilityPositionJSON struct {
	Liability    liabilityJSON `json:"liability"`
	BalanceMinor int64         `json:"balanceMinor"`
}

type fundOverviewJSON struct {
	Fund          fundJSON                `json:"fund"`
	Assets        []assetPositionJSON     `json:"assets"`
	Liabilities   []liabilityPositionJSON `json:"liabilities"`
	NetMoneyMinor int64                   `json:"netMoneyMinor"`
}

func fundOverviewToJSON(ov services.FundOverview) fundOverviewJSON {
	j := fundOverviewJSON{
		Fund:          fundToJSON(ov.Fund),
		Assets:        make([]assetPositionJSON, 0, len(ov.Assets)),
		Liabilities:   make([]liabilityPositionJSON, 0, len(ov.Liabilities)),
		NetMoneyMinor: ov.NetMoneyMinor,
	}
	for _, p := range ov.Assets {
		j.Assets = append(j.Assets, assetPositionJSON{
			Asset: assetToJSON(p.Asset), MoneyMinor: p.MoneyMinor, QuantityMinor: p.QuantityMinor,
		})
	}
	for _, p := range ov.Liabilities {
		j.Liabilities = append(j.Liabilities, liabilityPositionJSON{
			Liability: liabilityToJSON(p.Liability), BalanceMinor: p.BalanceMinor,
		})
	}
	return j
}

func timeJSON(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
