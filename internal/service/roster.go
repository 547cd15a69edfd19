// Пакет service — бизнес-логика Staff Roster.
// RosterService — единая точка входа для веб-консоли и CLI:
// валидация кандидата до обращения к Store, учёт исходов операций.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/staffroster/internal/domain/model"
	"github.com/bigkaa/staffroster/internal/rosterclient"
	"github.com/bigkaa/staffroster/internal/store"
	"github.com/bigkaa/staffroster/internal/validation"
)

// Имена операций (лейбл operation).
const (
	OpRefresh = "refresh"
	OpCreate  = "create"
	OpEdit    = "edit"
	OpDelete  = "delete"
)

// Исходы операций (лейбл result).
const (
	ResultOK              = "ok"
	ResultInvalid         = "invalid"
	ResultDeclined        = "declined"
	ResultNotFoundLocally = "not_found_locally"
	ResultTransport       = "transport"
	ResultRejected        = "rejected"
)

// rosterOperationsTotal — количество операций ростера по исходам.
var rosterOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sr_roster_operations_total",
		Help: "Общее количество операций над ростером",
	},
	[]string{"operation", "result"},
)

// RosterService — операции над ростером.
type RosterService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewRosterService создаёт сервис поверх Store.
func NewRosterService(st *store.Store, logger *slog.Logger) *RosterService {
	return &RosterService{
		store:  st,
		logger: logger.With(slog.String("component", "roster")),
	}
}

// Store возвращает Store (подписка на события).
func (s *RosterService) Store() *store.Store {
	return s.store
}

// Refresh перезагружает коллекцию с бэкенда.
func (s *RosterService) Refresh(ctx context.Context) error {
	err := s.store.Load(ctx)
	s.observe(OpRefresh, "", err)
	return err
}

// Create проверяет кандидата и создаёт запись.
// Невалидный кандидат — *validation.Error, запрос не отправляется.
func (s *RosterService) Create(ctx context.Context, fields model.UserFields) (model.UserRecord, error) {
	if err := validation.Validate(fields); err != nil {
		s.observe(OpCreate, "", err)
		return model.UserRecord{}, err
	}
	rec, err := s.store.Add(ctx, fields)
	s.observe(OpCreate, rec.ID, err)
	return rec, err
}

// Edit проверяет кандидата и обновляет запись id.
func (s *RosterService) Edit(ctx context.Context, id string, fields model.UserFields) (model.UserRecord, error) {
	if err := validation.Validate(fields); err != nil {
		s.observe(OpEdit, id, err)
		return model.UserRecord{}, err
	}
	rec, err := s.store.Update(ctx, id, fields)
	s.observe(OpEdit, id, err)
	return rec, err
}

// Delete удаляет запись после подтверждения.
// Возвращает false, если удаление отклонено пользователем.
func (s *RosterService) Delete(ctx context.Context, id string, confirmer store.Confirmer) (bool, error) {
	deleted, err := s.store.RemoveConfirmed(ctx, id, confirmer)
	if !deleted && err == nil {
		rosterOperationsTotal.WithLabelValues(OpDelete, ResultDeclined).Inc()
		return false, nil
	}
	s.observe(OpDelete, id, err)
	return deleted, err
}

// Records возвращает снимок коллекции.
func (s *RosterService) Records() []model.UserRecord {
	return s.store.Snapshot()
}

// Record возвращает запись по id.
func (s *RosterService) Record(id string) (model.UserRecord, bool) {
	return s.store.Get(id)
}

// observe логирует неудачу и учитывает исход в метриках.
func (s *RosterService) observe(op, id string, err error) {
	result := Classify(err)
	rosterOperationsTotal.WithLabelValues(op, result).Inc()
	if err == nil {
		return
	}

	level := slog.LevelWarn
	if result == ResultInvalid {
		level = slog.LevelDebug
	}
	s.logger.Log(context.Background(), level, "Операция над ростером не выполнена",
		slog.String("operation", op),
		slog.String("id", id),
		slog.String("result", result),
		slog.String("error", err.Error()),
	)
}

// Classify сводит ошибку операции к одному из исходов Result*.
func Classify(err error) string {
	var rejection *rosterclient.RemoteRejection
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, validation.ErrInvalid):
		return ResultInvalid
	case errors.Is(err, store.ErrNotFoundLocally):
		return ResultNotFoundLocally
	case errors.As(err, &rejection):
		return ResultRejected
	default:
		return ResultTransport
	}
}
