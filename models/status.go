package models

// OrderStatus is the lifecycle state of a service order. Values are the
// Portuguese labels the frontend displays and filters on.
type OrderStatus string

const (
	StatusQueued     OrderStatus = "Na Fila"
	StatusScheduled  OrderStatus = "Agendado"
	StatusInProgress OrderStatus = "Em Andamento"
	StatusCompleted  OrderStatus = "Concluído"
	StatusCancelled  OrderStatus = "Cancelado"
	// StatusLedgerEntryDeleted is reached only when the order's revenue entry is deleted
	StatusLedgerEntryDeleted OrderStatus = "Lançamento Excluído"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusQueued:     {StatusScheduled, StatusCancelled, StatusInProgress},
	StatusScheduled:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled, StatusScheduled},
	StatusCompleted:  {},
	StatusCancelled:  {},
	// a reversed order may be completed again (re-posting revenue) or written off
	StatusLedgerEntryDeleted: {StatusCompleted, StatusCancelled},
}

// AllOrderStatuses lists every known status
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		StatusQueued, StatusScheduled, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusLedgerEntryDeleted,
	}
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransitionTo reports whether target is a legal next status from s
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further change is possible
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}
