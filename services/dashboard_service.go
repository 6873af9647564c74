package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/guincho-oliveira/crm-api/apperrors"
	"github.com/guincho-oliveira/crm-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Summary periods
const (
	PeriodToday = "hoje"
	PeriodWeek  = "semanal"
	PeriodMonth = "mensal"
	PeriodYear  = "anual"
	GroupByDay  = "dia"
	GroupByHour = "hora"
)

const productiveDays = 7

var (
	monthLabels   = []string{"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"}
	weekdayLabels = []string{"Dom", "Seg", "Ter", "Qua", "Qui", "Sex", "Sáb"}
)

// DashboardService computes the read-only indicators of the home screen.
// Aggregation happens in Go over range-bounded queries.
type DashboardService struct {
	base
}

func NewDashboardService(db *gorm.DB, opts Options) *DashboardService {
	return &DashboardService{base: newBase(db, opts)}
}

// Summary is the headline of the dashboard
type Summary struct {
	Revenue           decimal.Decimal `json:"faturamento"`
	Expenses          decimal.Decimal `json:"despesas"`
	Profit            decimal.Decimal `json:"lucro"`
	CompletedServices int64           `json:"servicosConcluidos"`
	ProfitGoal        decimal.Decimal `json:"metaLucro"`
}

// AnnualSeries has one revenue and one expense value per month
type AnnualSeries struct {
	Labels   []string          `json:"labels"`
	Revenue  []decimal.Decimal `json:"faturamentoData"`
	Expenses []decimal.Decimal `json:"despesasData"`
}

// Series is a labelled list of values
type Series struct {
	Labels []string          `json:"labels"`
	Data   []decimal.Decimal `json:"data"`
}

// DailyCount is the number of orders a driver completed on one day
type DailyCount struct {
	Day       string `json:"dia"`
	Completed int    `json:"concluidas"`
}

// periodRange returns [start, end) of the period containing now
func (s *DashboardService) periodRange(period string) (time.Time, time.Time, error) {
	now := s.Now().In(s.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.Location)

	switch period {
	case PeriodToday:
		return today, today.AddDate(0, 0, 1), nil
	case PeriodWeek:
		// weeks start on Monday
		offset := (int(today.Weekday()) + 6) % 7
		start := today.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), nil
	case PeriodMonth, "":
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.Location)
		return start, start.AddDate(0, 1, 0), nil
	case PeriodYear:
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, s.Location)
		return start, start.AddDate(1, 0, 0), nil
	}
	return time.Time{}, time.Time{}, apperrors.Validation("INVALID_PERIOD", "Período inválido. Use hoje, semanal, mensal ou anual.")
}

// Summary totals revenue, expenses and completed orders for the period
func (s *DashboardService) Summary(ctx context.Context, period string) (*Summary, error) {
	start, end, err := s.periodRange(period)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	entries, err := s.entriesBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Revenue: decimal.Zero, Expenses: decimal.Zero}
	for _, e := range entries {
		switch e.Kind {
		case models.LedgerRevenue:
			summary.Revenue = summary.Revenue.Add(e.Amount)
		case models.LedgerExpense:
			summary.Expenses = summary.Expenses.Add(e.Amount)
		}
	}
	summary.Profit = summary.Revenue.Sub(summary.Expenses)

	if err := s.db.WithContext(ctx).Model(&models.ServiceOrder{}).
		Where("status = ? AND data_resolucao >= ? AND data_resolucao < ?", models.StatusCompleted, start.UTC(), end.UTC()).
		Count(&summary.CompletedServices).Error; err != nil {
		return nil, readFailure("Falha ao calcular o resumo.", err)
	}

	summary.ProfitGoal, err = s.profitGoal(ctx)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *DashboardService) profitGoal(ctx context.Context) (decimal.Decimal, error) {
	var setting models.Setting
	err := s.db.WithContext(ctx).Where("chave = ?", models.SettingMonthlyProfitGoal).Take(&setting).Error
	if isNotFound(err) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, readFailure("Falha ao buscar a meta de lucro.", err)
	}
	goal, err := decimal.NewFromString(strings.TrimSpace(setting.Value))
	if err != nil {
		s.Logger.Printf("invalid %s setting %q: %v", models.SettingMonthlyProfitGoal, setting.Value, err)
		return decimal.Zero, nil
	}
	return goal, nil
}

// AnnualRevenue returns monthly revenue and expenses of the current year
func (s *DashboardService) AnnualRevenue(ctx context.Context) (*AnnualSeries, error) {
	start, end, _ := s.periodRange(PeriodYear)

	ctx, cancel := s.unit(ctx)
	defer cancel()

	entries, err := s.entriesBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	series := &AnnualSeries{
		Labels:   monthLabels,
		Revenue:  zeros(12),
		Expenses: zeros(12),
	}
	for _, e := range entries {
		m := int(e.Date.In(s.Location).Month()) - 1
		switch e.Kind {
		case models.LedgerRevenue:
			series.Revenue[m] = series.Revenue[m].Add(e.Amount)
		case models.LedgerExpense:
			series.Expenses[m] = series.Expenses[m].Add(e.Amount)
		}
	}
	return series, nil
}

// ProfitByDriver ranks drivers by revenue minus expenses, keeping only positive results
func (s *DashboardService) ProfitByDriver(ctx context.Context) (*Series, error) {
	ctx, cancel := s.unit(ctx)
	defer cancel()

	var entries []models.LedgerEntry
	if err := s.db.WithContext(ctx).Where("motorista_id IS NOT NULL").Find(&entries).Error; err != nil {
		return nil, readFailure("Falha ao calcular o lucro por motorista.", err)
	}

	profit := map[uint]decimal.Decimal{}
	for _, e := range entries {
		amount := e.Amount
		if e.Kind == models.LedgerExpense {
			amount = amount.Neg()
		}
		profit[*e.DriverID] = profit[*e.DriverID].Add(amount)
	}

	var drivers []models.Driver
	if len(profit) > 0 {
		ids := make([]uint, 0, len(profit))
		for id := range profit {
			ids = append(ids, id)
		}
		if err := s.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Find(&drivers).Error; err != nil {
			return nil, readFailure("Falha ao calcular o lucro por motorista.", err)
		}
	}

	type row struct {
		name   string
		profit decimal.Decimal
	}
	rows := make([]row, 0, len(drivers))
	for _, d := range drivers {
		if p := profit[d.ID]; p.IsPositive() {
			rows = append(rows, row{name: d.Name, profit: p})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].profit.Equal(rows[j].profit) {
			return rows[i].name < rows[j].name
		}
		return rows[i].profit.GreaterThan(rows[j].profit)
	})

	series := &Series{Labels: []string{}, Data: []decimal.Decimal{}}
	for _, r := range rows {
		series.Labels = append(series.Labels, r.name)
		series.Data = append(series.Data, r.profit)
	}
	return series, nil
}

// RevenuePeaks sums completed order values by weekday over the current
// year, or by hour over the last 30 days
func (s *DashboardService) RevenuePeaks(ctx context.Context, groupBy string) (*Series, error) {
	var start time.Time
	var labels []string
	var bucket func(time.Time) int

	switch groupBy {
	case GroupByDay, "":
		start, _, _ = s.periodRange(PeriodYear)
		labels = weekdayLabels
		bucket = func(t time.Time) int { return int(t.Weekday()) }
	case GroupByHour:
		start = s.Now().AddDate(0, 0, -30)
		labels = make([]string, 24)
		for h := range labels {
			labels[h] = time.Date(2000, 1, 1, h, 0, 0, 0, time.UTC).Format("15h")
		}
		bucket = func(t time.Time) int { return t.Hour() }
	default:
		return nil, apperrors.Validation("INVALID_GROUPING", "Agrupamento inválido. Use dia ou hora.")
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	var orders []models.ServiceOrder
	if err := s.db.WithContext(ctx).
		Where("status = ? AND data_hora >= ?", models.StatusCompleted, start.UTC()).
		Find(&orders).Error; err != nil {
		return nil, readFailure("Falha ao calcular os picos de faturamento.", err)
	}

	data := zeros(len(labels))
	for _, o := range orders {
		i := bucket(o.ScheduledAt.In(s.Location))
		data[i] = data[i].Add(o.Value)
	}
	return &Series{Labels: labels, Data: data}, nil
}

// DriverProductivity counts orders the driver completed on each of the last 7 days
func (s *DashboardService) DriverProductivity(ctx context.Context, driverID uint) ([]DailyCount, error) {
	now := s.Now().In(s.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.Location)
	start := today.AddDate(0, 0, -(productiveDays - 1))

	ctx, cancel := s.unit(ctx)
	defer cancel()

	var orders []models.ServiceOrder
	if err := s.db.WithContext(ctx).
		Where("motorista_id = ? AND status = ? AND data_resolucao >= ?", driverID, models.StatusCompleted, start.UTC()).
		Find(&orders).Error; err != nil {
		return nil, readFailure("Falha ao calcular a produtividade.", err)
	}

	counts := make(map[string]int, productiveDays)
	for _, o := range orders {
		if o.ResolvedAt == nil {
			continue
		}
		counts[o.ResolvedAt.In(s.Location).Format("02/01")]++
	}

	days := make([]DailyCount, 0, productiveDays)
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		label := d.Format("02/01")
		days = append(days, DailyCount{Day: label, Completed: counts[label]})
	}
	return days, nil
}

// SetProfitGoal stores the monthly profit target
func (s *DashboardService) SetProfitGoal(ctx context.Context, goal decimal.Decimal) error {
	if goal.IsNegative() {
		return apperrors.Validation("VALIDATION_ERROR", "A meta de lucro não pode ser negativa.")
	}

	ctx, cancel := s.unit(ctx)
	defer cancel()

	setting := models.Setting{Key: models.SettingMonthlyProfitGoal, Value: goal.StringFixed(2)}
	if err := s.db.WithContext(ctx).Save(&setting).Error; err != nil {
		return writeFailure("Falha ao salvar a meta de lucro.", err)
	}
	return nil
}

func (s *DashboardService) entriesBetween(ctx context.Context, start, end time.Time) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := s.db.WithContext(ctx).
		Where("data >= ? AND data < ?", start.UTC(), end.UTC()).
		Find(&entries).Error; err != nil {
		return nil, readFailure("Falha ao calcular o resumo financeiro.", err)
	}
	return entries, nil
}

func zeros(n int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = decimal.Zero
	}
	return out
}
