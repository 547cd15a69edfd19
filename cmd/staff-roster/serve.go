package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bigkaa/staffroster/internal/api/handlers"
	"github.com/bigkaa/staffroster/internal/config"
	"github.com/bigkaa/staffroster/internal/server"
	"github.com/bigkaa/staffroster/internal/service"
	uihandlers "github.com/bigkaa/staffroster/internal/ui/handlers"
	"github.com/bigkaa/staffroster/internal/ui/i18n"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd.Context())
		},
	}
}

// runServe загружает ростер, запускает мониторинг зависимостей
// и HTTP-сервер веб-консоли до сигнала завершения.
func (a *app) runServe(ctx context.Context) error {
	// 1. Конфигурация, логирование, бэкенд
	rt, err := a.open(a.out)
	if err != nil {
		return err
	}
	cfg, logger := rt.cfg, rt.logger
	logger.Info("Staff Roster запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("backend_mode", cfg.BackendMode),
	)

	if cfg.BackendMode == config.BackendModeMemory {
		logger.Warn("Бэкенд в памяти: изменения не сохраняются между перезапусками")
	}

	// 2. Каталоги переводов UI
	if err := i18n.LoadFromEmbedFS(i18n.Init(logger), logger); err != nil {
		return fmt.Errorf("ошибка загрузки переводов: %w", err)
	}

	// 3. Начальная загрузка ростера. Ошибка не фатальна:
	// консоль покажет пустой список и позволит повторить загрузку.
	if err := rt.roster.Refresh(ctx); err != nil {
		logger.Warn("Начальная загрузка ростера не выполнена",
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("Ростер загружен", slog.Int("records", len(rt.roster.Records())))
	}

	// 4. topologymetrics — мониторинг бэкенда
	var dephealthSvc *service.DephealthService
	if cfg.DephealthEnabled {
		if os.Getenv("SR_DEPHEALTH_GROUP") == "" {
			logger.Warn("SR_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
				slog.String("default", cfg.DephealthGroup),
			)
		}
		dephealthSvc = startDephealth(ctx, cfg, logger)
	}

	// 5. HTTP-сервер
	ui := &server.UIComponents{
		RosterHandler: uihandlers.NewRosterHandler(rt.roster, logger),
		EventsHandler: uihandlers.NewEventsHandler(rt.roster.Store(), cfg.SSEKeepAlive, logger),
	}
	srv := server.New(cfg, logger,
		handlers.NewHealthHandler(rt.backend),
		handlers.NewRosterHandler(rt.roster),
		ui,
	)
	runErr := srv.Run()

	// 6. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	if runErr != nil {
		logger.Error("Ошибка сервера", slog.String("error", runErr.Error()))
		return runErr
	}

	logger.Info("Staff Roster остановлен")
	return nil
}

// startDephealth запускает мониторинг бэкенда.
// Ошибки не фатальны: сервис работает без мониторинга.
func startDephealth(ctx context.Context, cfg *config.Config, logger *slog.Logger) *service.DephealthService {
	svc, err := service.NewDephealthService(
		"staff-roster",
		cfg.DephealthGroup,
		cfg.BackendURL,
		cfg.DephealthCheckInterval,
		cfg.DephealthTLSSkipVerify,
		logger,
	)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
		return nil
	}
	if err := svc.Start(ctx); err != nil {
		logger.Warn("Ошибка запуска topologymetrics",
			slog.String("error", err.Error()),
		)
		return nil
	}
	logger.Info("topologymetrics запущен",
		slog.String("group", cfg.DephealthGroup),
		slog.String("check_interval", cfg.DephealthCheckInterval.String()),
	)
	return svc
}
