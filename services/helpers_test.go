package services

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/guincho-oliveira/crm-api/testutil"
	"gorm.io/gorm"
)

// recordingAudit keeps entries in memory
type recordingAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (r *recordingAudit) Record(entry AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}

// recordingEvents keeps published events in memory
type recordingEvents struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingEvents) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	db      *gorm.DB
	opts    Options
	audit   *recordingAudit
	events  *recordingEvents
	catalog testutil.Catalog
	actor   Actor
}

// newFixture builds a seeded database and options with a fixed clock at
// 20/03/2025 09:00 in São Paulo
func newFixture(t *testing.T) *fixture {
	t.Helper()

	loc := testutil.SaoPaulo(t)
	db := testutil.NewTestDB(t)
	audit := &recordingAudit{}
	events := &recordingEvents{}

	return &fixture{
		db: db,
		opts: Options{
			Timeout:  5 * time.Second,
			Now:      testutil.FixedClock(time.Date(2025, 3, 20, 9, 0, 0, 0, loc).UTC()),
			Location: loc,
			Audit:    audit,
			Events:   events,
			Logger:   log.New(io.Discard, "", 0),
		},
		audit:   audit,
		events:  events,
		catalog: testutil.SeedCatalog(t, db),
		actor:   Actor{UserID: 1, Name: "Ana Atendente", Role: "operacional"},
	}
}

func (f *fixture) now() time.Time {
	return f.opts.Now()
}
