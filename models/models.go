package models

// All returns every model in dependency order, for AutoMigrate
func All() []any {
	return []any{
		&User{},
		&Customer{},
		&Driver{},
		&Vehicle{},
		&ServiceOrder{},
		&OrderSequence{},
		&Note{},
		&FinancialCategory{},
		&LedgerEntry{},
		&Setting{},
		&AuditLogEntry{},
	}
}

// DefaultCategories are seeded on migration when the table is empty
func DefaultCategories() []FinancialCategory {
	return []FinancialCategory{
		{Name: "Serviços de Guincho", Kind: LedgerRevenue, OrderRevenue: true},
		{Name: "Outras Receitas", Kind: LedgerRevenue},
		{Name: "Combustível", Kind: LedgerExpense},
		{Name: "Manutenção", Kind: LedgerExpense},
		{Name: "Salários", Kind: LedgerExpense},
		{Name: "Outras Despesas", Kind: LedgerExpense},
	}
}
