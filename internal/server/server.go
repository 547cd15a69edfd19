// Пакет server — HTTP-сервер Staff Roster с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на ingress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/staffroster/internal/api/errors"
	"github.com/bigkaa/staffroster/internal/api/handlers"
	"github.com/bigkaa/staffroster/internal/api/middleware"
	"github.com/bigkaa/staffroster/internal/config"
	uihandlers "github.com/bigkaa/staffroster/internal/ui/handlers"
	"github.com/bigkaa/staffroster/internal/ui/i18n"
	"github.com/bigkaa/staffroster/internal/ui/static"
)

// UIComponents — обработчики веб-консоли.
type UIComponents struct {
	RosterHandler *uihandlers.RosterHandler
	EventsHandler *uihandlers.EventsHandler
}

// Server — HTTP-сервер Staff Roster.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
// ui может быть nil — тогда доступны только health, metrics и JSON API.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	health *handlers.HealthHandler,
	roster *handlers.RosterHandler,
	ui *UIComponents,
) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.NotFound(w, fmt.Sprintf("Маршрут %s не найден", r.URL.Path))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierrors.MethodNotAllowed(w, fmt.Sprintf("Метод %s не поддерживается для %s", r.Method, r.URL.Path))
	})

	// Probes и метрики — без i18n
	router.Get("/health/live", health.HealthLive)
	router.Get("/health/ready", health.HealthReady)
	router.Get("/metrics", health.GetMetrics)

	router.Route("/api/v1/roster", func(r chi.Router) {
		r.Get("/", roster.List)
		r.Get("/{id}", roster.Get)
	})

	if ui != nil {
		mountUI(router, cfg.UIDefaultLang, ui)
	}

	// Базовый контекст запросов отменяется в начале shutdown:
	// SSE-потоки завершаются, не дожидаясь таймаута.
	baseCtx, cancelBase := context.WithCancel(context.Background())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelBase)

	return &Server{
		httpServer: srv,
		router:     router,
		logger:     logger,
		cfg:        cfg,
	}
}

// mountUI регистрирует страницы веб-консоли.
func mountUI(router chi.Router, defaultLang string, ui *UIComponents) {
	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static.FileSystem())))

	router.Group(func(r chi.Router) {
		r.Use(i18n.Middleware(defaultLang))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/roster", http.StatusFound)
		})
		r.Post("/set-language", uihandlers.HandleSetLanguage)

		r.Get("/roster", ui.RosterHandler.HandleList)
		r.Post("/roster", ui.RosterHandler.HandleCreate)
		r.Post("/roster/refresh", ui.RosterHandler.HandleRefresh)
		r.Get("/roster/new", ui.RosterHandler.HandleNew)
		r.Get("/roster/events", ui.EventsHandler.HandleRosterEvents)
		r.Get("/roster/{id}/edit", ui.RosterHandler.HandleEdit)
		r.Post("/roster/{id}", ui.RosterHandler.HandleUpdate)
		r.Get("/roster/{id}/delete", ui.RosterHandler.HandleConfirmDelete)
		r.Post("/roster/{id}/delete", ui.RosterHandler.HandleDelete)
	})
}

// Handler возвращает корневой http.Handler (для тестов).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
