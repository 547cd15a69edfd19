// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Staff Roster мониторит единственную зависимость — REST-бэкенд ростера
// (HTTP checker к коллекции /users, critical). Проверка идёт независимо
// от операций пользователя и на состояние Store не влияет.
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/prometheus/client_golang/prometheus"
)

// backendDepName — имя зависимости в метриках.
const backendDepName = "roster-backend"

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга бэкенда.
// Метрики регистрируются в глобальном Prometheus registry.
//
// Параметры:
//   - serviceID — имя вершины графа текущего приложения ("staff-roster")
//   - group — имя группы в метриках (SR_DEPHEALTH_GROUP)
//   - backendURL — базовый URL бэкенда (SR_BACKEND_URL)
//   - checkInterval — интервал проверки (SR_DEPHEALTH_CHECK_INTERVAL)
//   - tlsSkipVerify — не проверять сертификат https-бэкенда (SR_DEPHEALTH_TLS_SKIP_VERIFY)
func NewDephealthService(
	serviceID string,
	group string,
	backendURL string,
	checkInterval time.Duration,
	tlsSkipVerify bool,
	logger *slog.Logger,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, backendURL, checkInterval, tlsSkipVerify, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	serviceID string,
	group string,
	backendURL string,
	checkInterval time.Duration,
	tlsSkipVerify bool,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, backendURL, checkInterval,
		tlsSkipVerify, logger, dephealth.WithRegisterer(registerer))
}

func newDephealthService(
	serviceID string,
	group string,
	backendURL string,
	checkInterval time.Duration,
	tlsSkipVerify bool,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	healthPath, tls, err := backendProbe(backendURL)
	if err != nil {
		return nil, err
	}

	depOpts := []dephealth.DependencyOption{
		dephealth.FromURL(backendURL),
		dephealth.WithHTTPHealthPath(healthPath),
		dephealth.CheckInterval(checkInterval),
		dephealth.Critical(true),
	}
	// Для http-бэкенда настройка не имеет смысла
	if tls && tlsSkipVerify {
		depOpts = append(depOpts, dephealth.WithHTTPTLSSkipVerify(true))
	}

	opts := make([]dephealth.Option, 0, 2+len(extraOpts))
	opts = append(opts,
		dephealth.WithLogger(logger),
		dephealth.HTTP(backendDepName, depOpts...),
	)
	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(serviceID, group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен (roster backend)")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}

// backendProbe вычисляет probe path (префикс базового URL + /users)
// и признак TLS.
func backendProbe(backendURL string) (string, bool, error) {
	u, err := url.Parse(backendURL)
	if err != nil {
		return "", false, fmt.Errorf("некорректный URL бэкенда: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("в URL бэкенда %q отсутствует host", backendURL)
	}
	return strings.TrimRight(u.Path, "/") + "/users", u.Scheme == "https", nil
}
