package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bigkaa/staffroster/internal/domain/model"
	"github.com/bigkaa/staffroster/internal/memory"
	"github.com/bigkaa/staffroster/internal/rosterclient"
	"github.com/bigkaa/staffroster/internal/store"
	"github.com/bigkaa/staffroster/internal/validation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// countingBackend считает обращения к бэкенду.
type countingBackend struct {
	store.Backend
	calls atomic.Int32
}

func (c *countingBackend) List(ctx context.Context) ([]model.UserRecord, error) {
	c.calls.Add(1)
	return c.Backend.List(ctx)
}

func (c *countingBackend) Create(ctx context.Context, f model.UserFields) (model.UserRecord, error) {
	c.calls.Add(1)
	return c.Backend.Create(ctx, f)
}

func (c *countingBackend) Update(ctx context.Context, id string, f model.UserFields) (model.UserRecord, error) {
	c.calls.Add(1)
	return c.Backend.Update(ctx, id, f)
}

func (c *countingBackend) Delete(ctx context.Context, id string) error {
	c.calls.Add(1)
	return c.Backend.Delete(ctx, id)
}

func newTestService(t *testing.T) (*RosterService, *countingBackend) {
	t.Helper()
	backend := &countingBackend{Backend: memory.New(memory.SeedRecords(), testLogger())}
	svc := NewRosterService(store.New(backend, testLogger()), testLogger())
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return svc, backend
}

func validFields() model.UserFields {
	return model.UserFields{
		FirstName:   "Ann",
		LastName:    "Lee",
		PhoneNumber: "5551234",
		Email:       "ann@example.com",
		Role:        model.RoleWaiter,
	}
}

func TestRosterService_Create(t *testing.T) {
	svc, _ := newTestService(t)

	rec, err := svc.Create(context.Background(), validFields())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID == "" {
		t.Error("пустой id")
	}
	if got, ok := svc.Record(rec.ID); !ok || got.FirstName != "Ann" {
		t.Errorf("Record = %+v, %v", got, ok)
	}
	if len(svc.Records()) != 3 {
		t.Errorf("Records = %d", len(svc.Records()))
	}
}

// TestRosterService_InvalidNoRequest: невалидный кандидат не доходит до бэкенда.
func TestRosterService_InvalidNoRequest(t *testing.T) {
	svc, backend := newTestService(t)
	before := backend.calls.Load()

	bad := validFields()
	bad.FirstName = "J0hn"

	_, err := svc.Create(context.Background(), bad)
	var verr *validation.Error
	if !errors.As(err, &verr) || verr.Message != validation.MsgFirstName {
		t.Fatalf("Create = %v, ожидалась ошибка валидации", err)
	}

	bad = validFields()
	bad.PhoneNumber = "12a"
	if _, err := svc.Edit(context.Background(), "1", bad); !errors.Is(err, validation.ErrInvalid) {
		t.Fatalf("Edit = %v, ожидалась ошибка валидации", err)
	}

	if backend.calls.Load() != before {
		t.Error("невалидный кандидат отправлен на бэкенд")
	}
	if rec, _ := svc.Record("1"); rec.PhoneNumber != "1234567890" {
		t.Error("запись изменена невалидным кандидатом")
	}
}

func TestRosterService_Edit(t *testing.T) {
	svc, _ := newTestService(t)

	rec, err := svc.Edit(context.Background(), "2", validFields())
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if rec.ID != "2" || rec.FirstName != "Ann" {
		t.Errorf("Edit = %+v", rec)
	}
}

func TestRosterService_Delete(t *testing.T) {
	svc, backend := newTestService(t)
	before := backend.calls.Load()

	no := store.ConfirmFunc(func(context.Context, model.UserRecord) bool { return false })
	declinedBefore := testutil.ToFloat64(rosterOperationsTotal.WithLabelValues(OpDelete, ResultDeclined))

	deleted, err := svc.Delete(context.Background(), "1", no)
	if err != nil || deleted {
		t.Fatalf("Delete(отказ) = %v, %v", deleted, err)
	}
	if backend.calls.Load() != before {
		t.Error("при отказе запрос отправлен")
	}
	if got := testutil.ToFloat64(rosterOperationsTotal.WithLabelValues(OpDelete, ResultDeclined)); got != declinedBefore+1 {
		t.Errorf("declined = %v, ожидалось %v", got, declinedBefore+1)
	}

	yes := store.ConfirmFunc(func(context.Context, model.UserRecord) bool { return true })
	deleted, err = svc.Delete(context.Background(), "1", yes)
	if err != nil || !deleted {
		t.Fatalf("Delete = %v, %v", deleted, err)
	}
	if _, ok := svc.Record("1"); ok {
		t.Error("запись не удалена")
	}
}

func TestRosterService_DeleteRejected(t *testing.T) {
	svc, _ := newTestService(t)
	yes := store.ConfirmFunc(func(context.Context, model.UserRecord) bool { return true })

	_, err := svc.Delete(context.Background(), "missing", yes)
	if Classify(err) != ResultRejected {
		t.Errorf("Classify(%v) = %q", err, Classify(err))
	}
}

func TestRosterService_Metrics(t *testing.T) {
	svc, _ := newTestService(t)
	counter := rosterOperationsTotal.WithLabelValues(OpCreate, ResultOK)
	before := testutil.ToFloat64(counter)

	if _, err := svc.Create(context.Background(), validFields()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("sr_roster_operations_total{create,ok} = %v, ожидалось %v", got, before+1)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ResultOK},
		{"валидация", &validation.Error{Field: "firstName", Message: validation.MsgFirstName}, ResultInvalid},
		{"нет локально", &store.NotFoundLocallyError{Op: store.OpUpdate, ID: "2"}, ResultNotFoundLocally},
		{"отказ бэкенда", &rosterclient.RemoteRejection{Op: "list", StatusCode: http.StatusBadGateway}, ResultRejected},
		{"обёрнутый отказ", fmt.Errorf("ctx: %w", &rosterclient.RemoteRejection{StatusCode: 400}), ResultRejected},
		{"транспорт", &rosterclient.TransportError{Op: "list", Err: errors.New("refused")}, ResultTransport},
		{"прочее", errors.New("boom"), ResultTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify = %q, ожидалось %q", got, tt.want)
			}
		})
	}
}
