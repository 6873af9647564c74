package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/guincho-oliveira/crm-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxAllocationAttempts bounds retries when two creations race for an id
const maxAllocationAttempts = 3

// OrderIDAllocator issues identifiers of the form MMYY-NNNN. The counter is
// per calendar month in the business timezone and starts at 0001.
type OrderIDAllocator struct {
	loc *time.Location
}

func NewOrderIDAllocator(loc *time.Location) OrderIDAllocator {
	if loc == nil {
		loc = time.UTC
	}
	return OrderIDAllocator{loc: loc}
}

// Period returns the MMYY prefix for t
func (a OrderIDAllocator) Period(t time.Time) string {
	return t.In(a.loc).Format("0106")
}

// FormatOrderID zero-pads the sequence to at least four digits
func FormatOrderID(period string, n int) string {
	return fmt.Sprintf("%s-%04d", period, n)
}

// Next reserves the next identifier for the month containing t. It must run
// inside the transaction that inserts the order so the counter row stays
// locked until commit. The counter never hands out a number at or below an
// order already stored for the month, so rows inserted behind its back
// (imports, manual fixes) are skipped instead of colliding.
func (a OrderIDAllocator) Next(tx *gorm.DB, t time.Time) (string, error) {
	period := a.Period(t)

	var seq models.OrderSequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("periodo = ?", period).
		Take(&seq).Error
	if err != nil && !isNotFound(err) {
		return "", err
	}
	exists := err == nil

	highest, err := a.highestExisting(tx, period)
	if err != nil {
		return "", err
	}
	seq.LastNumber = max(seq.LastNumber, highest) + 1

	if exists {
		err = tx.Model(&seq).Update("ultimo_numero", seq.LastNumber).Error
	} else {
		seq.Period = period
		err = tx.Create(&seq).Error
	}
	if err != nil {
		return "", err
	}
	return FormatOrderID(period, seq.LastNumber), nil
}

// highestExisting is the largest sequence number already used by an order of
// the period
func (a OrderIDAllocator) highestExisting(tx *gorm.DB, period string) (int, error) {
	var ids []string
	err := tx.Model(&models.ServiceOrder{}).
		Where("id LIKE ?", period+"-%").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}

	highest := 0
	for _, id := range ids {
		n, err := strconv.Atoi(strings.TrimPrefix(id, period+"-"))
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest, nil
}
