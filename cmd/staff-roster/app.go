package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bigkaa/staffroster/internal/config"
	"github.com/bigkaa/staffroster/internal/domain/model"
	"github.com/bigkaa/staffroster/internal/memory"
	"github.com/bigkaa/staffroster/internal/rosterclient"
	"github.com/bigkaa/staffroster/internal/service"
	"github.com/bigkaa/staffroster/internal/store"
)

// rosterBackend — бэкенд ростера с проверкой готовности.
type rosterBackend interface {
	store.Backend
	CheckReady() (status, message string)
}

// app — зависимости команд: потоки ввода-вывода и фабрика бэкенда.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	newBackend func(cfg *config.Config, logger *slog.Logger) (rosterBackend, error)
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		in:         in,
		out:        out,
		errOut:     errOut,
		newBackend: buildBackend,
	}
}

// runtime — собранный сервисный слой одной команды.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	backend rosterBackend
	roster  *service.RosterService
}

// open загружает конфигурацию и собирает Store и RosterService.
// logOut — поток логов (stdout для serve, stderr для users).
func (a *app) open(logOut io.Writer) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	logger := config.SetupLoggerTo(cfg, logOut)

	backend, err := a.newBackend(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		backend: backend,
		roster:  service.NewRosterService(store.New(backend, logger), logger),
	}, nil
}

// buildBackend создаёт бэкенд по SR_BACKEND_MODE.
func buildBackend(cfg *config.Config, logger *slog.Logger) (rosterBackend, error) {
	if cfg.BackendMode == config.BackendModeMemory {
		var seed []model.UserRecord
		if cfg.MemorySeed {
			seed = memory.SeedRecords()
		}
		return memory.New(seed, logger), nil
	}

	client, err := rosterclient.New(rosterclient.Options{
		BaseURL:      cfg.BackendURL,
		Timeout:      cfg.BackendTimeout,
		CACertPath:   cfg.BackendCACertPath,
		TokenURL:     cfg.BackendTokenURL,
		ClientID:     cfg.BackendClientID,
		ClientSecret: cfg.BackendClientSecret,
		Strict:       cfg.BackendStrict,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания клиента бэкенда: %w", err)
	}
	return client, nil
}

// newRootCommand создаёт корневую команду staff-roster.
func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "staff-roster",
		Short: "Staff roster: web console and CLI",
		Long: `Staff roster keeps a list of staff members in sync with a REST backend.

Without a subcommand the web console is started (same as "staff-roster serve").
Configuration is read from SR_* environment variables.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd.Context())
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(newServeCommand(a))
	root.AddCommand(newUsersCommand(a))
	root.AddCommand(newVersionCommand(a))
	return root
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.out, "staff-roster %s\n", config.Version)
		},
	}
}
