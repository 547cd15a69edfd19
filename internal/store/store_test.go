package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/staffroster/internal/domain/model"
)

// testLogger возвращает логгер для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// fakeBackend — управляемый Backend для тестов.
// Каждое поле *Fn переопределяет поведение соответствующей операции.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	listFn   func() ([]model.UserRecord, error)
	createFn func(model.UserFields) (model.UserRecord, error)
	updateFn func(string, model.UserFields) (model.UserRecord, error)
	deleteFn func(string) error
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// callsSince возвращает запросы, сделанные после первых n.
func (f *fakeBackend) callsSince(n int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls[n:]...)
}

func (f *fakeBackend) List(_ context.Context) ([]model.UserRecord, error) {
	f.record("list")
	if f.listFn == nil {
		return []model.UserRecord{}, nil
	}
	return f.listFn()
}

func (f *fakeBackend) Create(_ context.Context, fields model.UserFields) (model.UserRecord, error) {
	f.record("create")
	if f.createFn == nil {
		return fields.WithID("1"), nil
	}
	return f.createFn(fields)
}

func (f *fakeBackend) Update(_ context.Context, id string, fields model.UserFields) (model.UserRecord, error) {
	f.record("update " + id)
	if f.updateFn == nil {
		return fields.WithID(id), nil
	}
	return f.updateFn(id, fields)
}

func (f *fakeBackend) Delete(_ context.Context, id string) error {
	f.record("delete " + id)
	if f.deleteFn == nil {
		return nil
	}
	return f.deleteFn(id)
}

var errBackend = errors.New("backend failure")

func john() model.UserFields {
	return model.UserFields{
		FirstName:   "John",
		LastName:    "Doe",
		PhoneNumber: "1234567890",
		Email:       "john@example.com",
		Role:        model.RoleManager,
	}
}

func jane() model.UserFields {
	return model.UserFields{
		FirstName:   "Jane",
		LastName:    "Doe",
		PhoneNumber: "9876543210",
		Email:       "jane@example.com",
		Role:        model.RoleWaiter,
	}
}

// loadedStore возвращает Store, загруженный указанными записями.
func loadedStore(t *testing.T, fb *fakeBackend, recs ...model.UserRecord) *Store {
	t.Helper()
	fb.listFn = func() ([]model.UserRecord, error) { return recs, nil }
	s := New(fb, testLogger())
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	fb.listFn = nil
	return s
}

func ids(recs []model.UserRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func equalIDs(t *testing.T, got []model.UserRecord, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("ids = %v, ожидалось %v", g, want)
	}
	for i := range g {
		if g[i] != want[i] {
			t.Fatalf("ids = %v, ожидалось %v", g, want)
		}
	}
}

// TestNew проверяет создание пустого Store.
func TestNew(t *testing.T) {
	s := New(&fakeBackend{}, testLogger())
	if s.Len() != 0 {
		t.Errorf("Len = %d, ожидалось 0", s.Len())
	}
	if snap := s.Snapshot(); snap == nil || len(snap) != 0 {
		t.Errorf("Snapshot = %#v, ожидался пустой слайс", snap)
	}
}

func TestLoad(t *testing.T) {
	fb := &fakeBackend{}
	s := loadedStore(t, fb, john().WithID("1"), jane().WithID("2"))

	equalIDs(t, s.Snapshot(), "1", "2")
	if rec, ok := s.Get("2"); !ok || rec.FirstName != "Jane" {
		t.Errorf("Get(2) = %+v, %v", rec, ok)
	}
}

func TestLoad_Idempotent(t *testing.T) {
	fb := &fakeBackend{}
	recs := []model.UserRecord{john().WithID("1"), jane().WithID("2")}
	fb.listFn = func() ([]model.UserRecord, error) { return recs, nil }

	s := New(fb, testLogger())
	for i := 0; i < 3; i++ {
		if err := s.Load(context.Background()); err != nil {
			t.Fatalf("Load #%d: %v", i, err)
		}
		equalIDs(t, s.Snapshot(), "1", "2")
	}
}

func TestLoad_FailureKeepsCollection(t *testing.T) {
	fb := &fakeBackend{}
	s := loadedStore(t, fb, john().WithID("1"))

	fb.listFn = func() ([]model.UserRecord, error) { return nil, errBackend }
	if err := s.Load(context.Background()); !errors.Is(err, errBackend) {
		t.Fatalf("Load = %v, ожидалась errBackend", err)
	}
	equalIDs(t, s.Snapshot(), "1")
}

func TestLoad_DuplicateIDsCollapsed(t *testing.T) {
	fb := &fakeBackend{}
	second := jane().WithID("1")
	s := loadedStore(t, fb, john().WithID("1"), jane().WithID("2"), second)

	equalIDs(t, s.Snapshot(), "1", "2")
	if rec, _ := s.Get("1"); rec.FirstName != "Jane" {
		t.Errorf("Get(1).FirstName = %q, ожидалась последняя версия", rec.FirstName)
	}
}

// TestAdd_AppendsBackendRecord: успешное создание добавляет запись с id бэкенда.
func TestAdd_AppendsBackendRecord(t *testing.T) {
	fb := &fakeBackend{}
	s := New(fb, testLogger())

	created, err := s.Add(context.Background(), john())
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if created.ID != "1" {
		t.Errorf("ID = %q, ожидалось \"1\"", created.ID)
	}

	snap := s.Snapshot()
	if len(snap) != 1 || snap[0] != john().WithID("1") {
		t.Errorf("Snapshot = %+v", snap)
	}
}

func TestAdd_AppendsAtEnd(t *testing.T) {
	fb := &fakeBackend{}
	s := loadedStore(t, fb, john().WithID("1"))
	fb.createFn = func(f model.UserFields) (model.UserRecord, error) { return f.WithID("9"), nil }

	if _, err := s.Add(context.Background(), jane()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	equalIDs(t, s.Snapshot(), "1", "9")
}

func TestAdd_FailureNoMutation(t *testing.T) {
	fb := &fakeBackend{}
	s := loadedStore(t, fb, john().WithID("1"))
	fb.createFn = func(model.UserFields) (model.UserRecord, error) { return model.UserRecord{}, errBackend }

	if _, err := s.Add(context.Background(), jane()); !errors.Is(err, errBackend) {
		t.Fatalf("Add = %v, ожидалась errBackend", err)
	}
	equalIDs(t, s.Snapshot(), "1")
}

func TestAdd_ExistingIDReplacedInPlace(t *testing.T) {
	fb := &fakeBackend{}
	s := loadedStore(t, fb, john().WithID("1"), jane().WithID("2"))
	fb.createFn = func(f model.UserFields) (model.UserRecord, error) { return f.WithID("1"), nil }

	if _, err := s.Add(context.Background(), jane()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	equalIDs(t, s.Snapshot(), "1", "2")
	if rec, _ := s.Get("1"); rec.FirstName != "Jane" {
		t.Errorf("Get(1).FirstName = %q", rec.FirstName)
	}
}

func TestUpdate(t *testing.T) {
	fb := &fakeBackend{}
	s := loadedStore(t, fb, john().WithID("1"), jane().WithID("2"))

	edited := john()
	edited.PhoneNumber = "555"
	got, err := s.Update(context.Background(), "1", edited)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.PhoneNumber != "555" || got.ID != "1" {
		t.Errorf("Update = %+v", got)
	}

	equalIDs(t, s.Snapshot(), "1", "2")
	if rec, _ := s.Get("1"); rec.PhoneNumber != "555" {
		t.Errorf("PhoneNumber = %q", rec.PhoneNumber)
	}
}

// TestUpdate_BackendRecordKept: в коллекцию попадает запись из ответа бэкенда.
func TestUpdate_BackendRecordKept(t *testing.T) {
	tests := []struct {
		name     string
		returned string
		wantIDs  []string
	}{
		{"пустой id из ответа", "", []string{"1", "2", "3"}},
		{"новый id", "20", []string{"1", "20", "3"}},
		{"id другой записи", "3", []string{"1", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBackend{}
			s := loadedStore(t, fb, john().WithID("1"), john().WithID("2"), john().WithID("3"))
			fb.updateFn = func(_ string, f model.UserFields) (model.UserRecord, error) {
				return f.WithID(tt.returned), nil
			}

			got, err := s.Update(context.Background(), "2", jane())
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			if got.FirstName != "Jane" {
				t.Errorf("Update = %+v", got)
			}
			equalIDs(t, s.Snapshot(), tt.wantIDs...)
		})
	}
}

func TestUpdate_FailureNoMutation(t *testing.T) {
	fb := &fakeBackend{}
	s := loadedStore(t, fb, john().WithID("1"))
	fb.updateFn = func(string, model.UserFields) (model.UserRecord, error) { return model.UserRecord{}, errBackend }

	edited := john()
	edited.FirstName = "Johnny"
	if _, err := s.Update(context.Background(), "1", edited); !errors.Is(err, errBackend) {
		t.Fatalf("Update = %v", err)
	}
	if rec, _ := s.Get("1"); rec.FirstName != "John" {
		t.Errorf("FirstName = %q, изменение не должно применяться", rec.FirstName)
	}
}

// TestUpdate_MissingLocally: id есть на бэкенде, но не локально.
func TestUpdate_MissingLocally(t *testing.T) {
	fb := &fakeBackend{}
	s := loadedStore(t, fb, john().WithID("1"))
	before := fb.callCount()

	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	_, err := s.Update(context.Background(), "2", jane())
	if !errors.Is(err, ErrNotFoundLocally) {
		t.Fatalf("Update = %v, ожидалась ErrNotFoundLocally", err)
	}
	var nfe *NotFoundLocallyError
	if !errors.As(err, &nfe) || nfe.ID != "2" || nfe.Op != OpUpdate {
		t.Errorf("ошибка = %#v", err)
	}
	if got := fb.callsSince(before); len(got) != 1 || got[0] != "update 2" {
		t.Errorf("запросы = %v, ожидался один PUT", got)
	}

	equalIDs(t, s.Snapshot(), "1")
	if len(events) != 1 || events[0].Kind != EventStale || events[0].ID != "2" {
		t.Errorf("events = %+v, ожидалось одно EventStale", events)
	}
}

func TestRemove(t *testing.T) {
	fb := &fakeBackend{}
	s := loadedStore(t, fb, john().WithID("1"), jane().WithID("2"), john().WithID("3"))

	if err := s.Remove(context.Background(), "2"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	equalIDs(t, s.Snapshot(), "1", "3")
}

func TestRemove_NotFoundLocally(t *testing.T) {
	fb := &fakeBackend{}
	s := loadedStore(t, fb, john().WithID("1"))

	err := s.Remove(context.Background(), "7")
	var nfe *NotFoundLocallyError
	if !errors.As(err, &nfe) || nfe.Op != OpRemove {
		t.Fatalf("Remove = %v, ожидалась NotFoundLocallyError", err)
	}
	equalIDs(t, s.Snapshot(), "1")
}

// TestRemoveConfirmed_Declined: отказ от подтверждения — без запроса.
func TestRemoveConfirmed_Declined(t *testing.T) {
	fb := &fakeBackend{}
	s := loadedStore(t, fb, john().WithID("1"))
	before := fb.callCount()

	var asked model.UserRecord
	deleted, err := s.RemoveConfirmed(context.Background(), "1", ConfirmFunc(func(_ context.Context, rec model.UserRecord) bool {
		asked = rec
		return false
	}))
	if err != nil || deleted {
		t.Fatalf("RemoveConfirmed = %v, %v", deleted, err)
	}
	if asked.FirstName != "John" {
		t.Errorf("подтверждение запрошено для %+v", asked)
	}
	if fb.callCount() != before {
		t.Error("при отказе запрос не должен отправляться")
	}
	equalIDs(t, s.Snapshot(), "1")
}

func TestRemoveConfirmed_NilConfirmer(t *testing.T) {
	fb := &fakeBackend{}
	s := loadedStore(t, fb, john().WithID("1"))

	deleted, err := s.RemoveConfirmed(context.Background(), "1", nil)
	if err != nil || deleted {
		t.Fatalf("RemoveConfirmed = %v, %v", deleted, err)
	}
	equalIDs(t, s.Snapshot(), "1")
}

// TestRemoveConfirmed_BackendFailure: подтверждено, бэкенд отказал — запись остаётся.
func TestRemoveConfirmed_BackendFailure(t *testing.T) {
	fb := &fakeBackend{}
	s := loadedStore(t, fb, john().WithID("1"))
	fb.deleteFn = func(string) error { return errBackend }

	yes := ConfirmFunc(func(context.Context, model.UserRecord) bool { return true })
	deleted, err := s.RemoveConfirmed(context.Background(), "1", yes)
	if !deleted {
		t.Error("deleted = false, запрос должен был быть отправлен")
	}
	if !errors.Is(err, errBackend) {
		t.Fatalf("err = %v, ожидалась errBackend", err)
	}
	equalIDs(t, s.Snapshot(), "1")
}

func TestRemoveConfirmed_Confirmed(t *testing.T) {
	fb := &fakeBackend{}
	s := loadedStore(t, fb, john().WithID("1"))

	yes := ConfirmFunc(func(context.Context, model.UserRecord) bool { return true })
	deleted, err := s.RemoveConfirmed(context.Background(), "1", yes)
	if err != nil || !deleted {
		t.Fatalf("RemoveConfirmed = %v, %v", deleted, err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d", s.Len())
	}
}

// TestRoundTrip: add → update → remove возвращает коллекцию к исходной.
func TestRoundTrip(t *testing.T) {
	fb := &fakeBackend{}
	s := loadedStore(t, fb, john().WithID("1"))
	fb.createFn = func(f model.UserFields) (model.UserRecord, error) { return f.WithID("2"), nil }
	before := s.Snapshot()

	ctx := context.Background()
	created, err := s.Add(ctx, jane())
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	edited := jane()
	edited.Role = model.RoleManager
	if _, err := s.Update(ctx, created.ID, edited); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.Remove(ctx, created.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	after := s.Snapshot()
	if len(after) != len(before) || after[0] != before[0] {
		t.Errorf("после цикла %+v, ожидалось %+v", after, before)
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	fb := &fakeBackend{}
	s := loadedStore(t, fb, john().WithID("1"))

	snap := s.Snapshot()
	snap[0].FirstName = "Mutated"
	if rec, _ := s.Get("1"); rec.FirstName != "John" {
		t.Error("изменение снимка повлияло на Store")
	}
}

func TestSubscribe_Events(t *testing.T) {
	fb := &fakeBackend{}
	fb.listFn = func() ([]model.UserRecord, error) { return []model.UserRecord{john().WithID("1")}, nil }
	fb.createFn = func(f model.UserFields) (model.UserRecord, error) { return f.WithID("2"), nil }
	s := New(fb, testLogger())

	var kinds []EventKind
	var lastLen int
	unsubscribe := s.Subscribe(func(ev Event) {
		kinds = append(kinds, ev.Kind)
		lastLen = len(ev.Records)
		// Обработчик может читать Store: блокировка уже снята
		_ = s.Len()
	})

	ctx := context.Background()
	_ = s.Load(ctx)
	_, _ = s.Add(ctx, jane())
	_, _ = s.Update(ctx, "2", jane())
	_ = s.Remove(ctx, "2")

	want := []EventKind{EventLoaded, EventAdded, EventUpdated, EventRemoved}
	if fmt.Sprint(kinds) != fmt.Sprint(want) {
		t.Errorf("события = %v, ожидалось %v", kinds, want)
	}
	if lastLen != 1 {
		t.Errorf("снимок в последнем событии = %d записей, ожидалась 1", lastLen)
	}

	unsubscribe()
	unsubscribe()
	_ = s.Load(ctx)
	if len(kinds) != len(want) {
		t.Error("событие доставлено после отписки")
	}
}

func TestSubscribe_NoEventOnFailure(t *testing.T) {
	fb := &fakeBackend{}
	fb.listFn = func() ([]model.UserRecord, error) { return nil, errBackend }
	fb.createFn = func(model.UserFields) (model.UserRecord, error) { return model.UserRecord{}, errBackend }
	s := New(fb, testLogger())

	count := 0
	s.Subscribe(func(Event) { count++ })

	_ = s.Load(context.Background())
	_, _ = s.Add(context.Background(), john())
	if count != 0 {
		t.Errorf("событий = %d, при ошибках события не рассылаются", count)
	}
}

// TestConcurrentAccess проверяет отсутствие гонок при параллельных операциях.
func TestConcurrentAccess(t *testing.T) {
	fb := &fakeBackend{}
	var mu sync.Mutex
	next := 0
	fb.createFn = func(f model.UserFields) (model.UserRecord, error) {
		mu.Lock()
		defer mu.Unlock()
		next++
		return f.WithID(fmt.Sprintf("id-%d", next)), nil
	}
	s := New(fb, testLogger())
	s.Subscribe(func(Event) {})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Add(context.Background(), john())
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
			_ = s.Len()
		}()
	}
	wg.Wait()

	if s.Len() != 20 {
		t.Errorf("Len = %d, ожидалось 20", s.Len())
	}
}

// TestOverlappingUpdateRemove: блокировка не удерживается на время запроса,
// результаты применяются в порядке прихода ответов.
func TestOverlappingUpdateRemove(t *testing.T) {
	fb := &fakeBackend{}
	s := loadedStore(t, fb, john().WithID("1"))

	entered := make(chan struct{})
	release := make(chan struct{})
	fb.updateFn = func(id string, f model.UserFields) (model.UserRecord, error) {
		close(entered)
		<-release
		return f.WithID(id), nil
	}

	updateErr := make(chan error, 1)
	go func() {
		_, err := s.Update(context.Background(), "1", jane())
		updateErr <- err
	}()
	<-entered

	removed := make(chan error, 1)
	go func() { removed <- s.Remove(context.Background(), "1") }()

	select {
	case err := <-removed:
		if err != nil {
			t.Fatalf("Remove: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Remove заблокирован незавершённым Update")
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d после Remove", s.Len())
	}

	close(release)
	if err := <-updateErr; !errors.Is(err, ErrNotFoundLocally) {
		t.Errorf("Update = %v, ожидалась ErrNotFoundLocally", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, запись вернулась после позднего ответа", s.Len())
	}
}
