package persistence

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/nexusswarm/swarm/internal/events"
)

func TestNop_AppendEventIsNoop(t *testing.T) {
	n := Nop{}
	if err := n.AppendEvent(context.Background(), "run1", events.Event{}); err != nil {
		t.Errorf("AppendEvent: %v", err)
	}
}

func TestNop_LoadEventsAlwaysNotFound(t *testing.T) {
	n := Nop{}
	_, err := n.LoadEvents(context.Background(), "run1")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("LoadEvents() = %v, want ErrRunNotFound", err)
	}
}

func TestInMemory_AppendAndLoad(t *testing.T) {
	m := NewInMemory()
	e1 := events.Event{Sequence: 0, Type: events.TypeSwarmStart}
	e2 := events.Event{Sequence: 1, Type: events.TypeSwarmDone}

	m.AppendEvent(context.Background(), "run1", e1)
	m.AppendEvent(context.Background(), "run1", e2)

	got, err := m.LoadEvents(context.Background(), "run1")
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if len(got) != 2 || got[0].Type != events.TypeSwarmStart || got[1].Type != events.TypeSwarmDone {
		t.Errorf("LoadEvents() = %+v, want [start, done]", got)
	}
}

func TestInMemory_LoadUnknownRun(t *testing.T) {
	m := NewInMemory()
	_, err := m.LoadEvents(context.Background(), "ghost-run")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("LoadEvents(ghost-run) = %v, want ErrRunNotFound", err)
	}
}

func TestInMemory_LoadReturnsACopyNotTheBackingSlice(t *testing.T) {
	m := NewInMemory()
	m.AppendEvent(context.Background(), "run1", events.Event{Sequence: 0})

	got, _ := m.LoadEvents(context.Background(), "run1")
	got[0].Sequence = 999

	got2, _ := m.LoadEvents(context.Background(), "run1")
	if got2[0].Sequence != 0 {
		t.Errorf("mutating a LoadEvents() result leaked into internal state: %d", got2[0].Sequence)
	}
}

func TestSQL_AppendEventInsertsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO swarm_events").
		WithArgs("run1", int64(0), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s := NewSQL(db)
	err = s.AppendEvent(context.Background(), "run1", events.Event{Sequence: 0, Type: events.TypeSwarmStart})
	if err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSQL_LoadEventsParsesRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"body"}).
		AddRow(`{"seq":0,"type":"swarm_start"}`).
		AddRow(`{"seq":1,"type":"swarm_done"}`)
	mock.ExpectQuery("SELECT body FROM swarm_events").
		WithArgs("run1").
		WillReturnRows(rows)

	s := NewSQL(db)
	got, err := s.LoadEvents(context.Background(), "run1")
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if len(got) != 2 || got[0].Sequence != 0 || got[1].Sequence != 1 {
		t.Errorf("LoadEvents() = %+v, want two ordered events", got)
	}
}

func TestSQL_LoadEventsNoRowsIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"body"})
	mock.ExpectQuery("SELECT body FROM swarm_events").
		WithArgs("ghost-run").
		WillReturnRows(rows)

	s := NewSQL(db)
	_, err = s.LoadEvents(context.Background(), "ghost-run")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("LoadEvents(ghost-run) = %v, want ErrRunNotFound", err)
	}
}
