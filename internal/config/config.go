// Пакет config — загрузка и валидация конфигурации Staff Roster
// из переменных окружения.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Режимы работы с бэкендом.
const (
	// BackendModeRemote — записи хранятся в удалённом REST-бэкенде.
	BackendModeRemote = "remote"
	// BackendModeMemory — записи хранятся только в памяти процесса.
	BackendModeMemory = "memory"
)

// Config содержит все параметры конфигурации Staff Roster.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера веб-консоли
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Бэкенд ---

	// Режим бэкенда (remote, memory)
	BackendMode string
	// Базовый URL REST-бэкенда (обязателен в режиме remote)
	BackendURL string
	// Таймаут запросов к бэкенду (0 — без таймаута)
	BackendTimeout time.Duration
	// Путь к CA-сертификату для TLS-соединений с бэкендом (опционально)
	BackendCACertPath string
	// Token endpoint для client_credentials grant (опционально)
	BackendTokenURL string
	// Client ID сервисного аккаунта
	BackendClientID string
	// Client Secret сервисного аккаунта
	BackendClientSecret string
	// Проверять ответы бэкенда по OpenAPI-контракту
	BackendStrict bool
	// Заполнять in-memory бэкенд начальными записями
	MemorySeed bool

	// --- UI ---

	// Язык интерфейса по умолчанию (en, he)
	UIDefaultLang string
	// Интервал keep-alive комментариев в SSE-потоке
	SSEKeepAlive time.Duration

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (0 — без таймаута, нужен для SSE)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- topologymetrics ---

	// Включить мониторинг бэкенда через topologymetrics
	DephealthEnabled bool
	// Имя группы в метриках зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Не проверять TLS-сертификат бэкенда в проверках topologymetrics
	// (бэкенд с сертификатом частного CA)
	DephealthTLSSkipVerify bool
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// SR_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("SR_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("SR_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("SR_PORT: значение %d вне диапазона 1-65535", cfg.Port)
	}

	// SR_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("SR_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("SR_LOG_LEVEL: %w", err)
	}

	// SR_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("SR_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SR_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Бэкенд ---

	cfg.BackendMode = strings.ToLower(getEnvDefault("SR_BACKEND_MODE", BackendModeRemote))
	if cfg.BackendMode != BackendModeRemote && cfg.BackendMode != BackendModeMemory {
		return nil, fmt.Errorf("SR_BACKEND_MODE: недопустимый режим %q, допустимые: remote, memory", cfg.BackendMode)
	}

	if cfg.BackendMode == BackendModeRemote {
		cfg.BackendURL, err = getEnvRequired("SR_BACKEND_URL")
		if err != nil {
			return nil, err
		}
		if err := validateURL(cfg.BackendURL); err != nil {
			return nil, fmt.Errorf("SR_BACKEND_URL: %w", err)
		}
		cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	}

	// SR_BACKEND_TIMEOUT — 0 означает «таймаут транспорта по умолчанию»
	cfg.BackendTimeout, err = getEnvDuration("SR_BACKEND_TIMEOUT", 0)
	if err != nil {
		return nil, fmt.Errorf("SR_BACKEND_TIMEOUT: %w", err)
	}
	if cfg.BackendTimeout < 0 {
		return nil, fmt.Errorf("SR_BACKEND_TIMEOUT: значение должно быть >= 0")
	}

	cfg.BackendCACertPath = os.Getenv("SR_BACKEND_CA_CERT_PATH")

	// Client credentials задаются только вместе
	cfg.BackendTokenURL = os.Getenv("SR_BACKEND_TOKEN_URL")
	cfg.BackendClientID = os.Getenv("SR_BACKEND_CLIENT_ID")
	cfg.BackendClientSecret = os.Getenv("SR_BACKEND_CLIENT_SECRET")
	if cfg.BackendTokenURL != "" {
		if err := validateURL(cfg.BackendTokenURL); err != nil {
			return nil, fmt.Errorf("SR_BACKEND_TOKEN_URL: %w", err)
		}
		if cfg.BackendClientID == "" || cfg.BackendClientSecret == "" {
			return nil, fmt.Errorf("SR_BACKEND_TOKEN_URL задан, но SR_BACKEND_CLIENT_ID или SR_BACKEND_CLIENT_SECRET пусты")
		}
	}

	cfg.BackendStrict, err = getEnvBool("SR_BACKEND_STRICT", false)
	if err != nil {
		return nil, fmt.Errorf("SR_BACKEND_STRICT: %w", err)
	}

	cfg.MemorySeed, err = getEnvBool("SR_MEMORY_SEED", true)
	if err != nil {
		return nil, fmt.Errorf("SR_MEMORY_SEED: %w", err)
	}

	// --- UI ---

	cfg.UIDefaultLang = strings.ToLower(getEnvDefault("SR_UI_DEFAULT_LANG", "en"))
	if cfg.UIDefaultLang != "en" && cfg.UIDefaultLang != "he" {
		return nil, fmt.Errorf("SR_UI_DEFAULT_LANG: недопустимый язык %q, допустимые: en, he", cfg.UIDefaultLang)
	}

	cfg.SSEKeepAlive, err = getEnvDurationPositive("SR_SSE_KEEPALIVE", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SR_SSE_KEEPALIVE: %w", err)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("SR_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SR_HTTP_READ_TIMEOUT: %w", err)
	}

	// Write timeout по умолчанию выключен: SSE-соединения долгоживущие
	cfg.HTTPWriteTimeout, err = getEnvDuration("SR_HTTP_WRITE_TIMEOUT", 0)
	if err != nil {
		return nil, fmt.Errorf("SR_HTTP_WRITE_TIMEOUT: %w", err)
	}

	cfg.HTTPIdleTimeout, err = getEnvDuration("SR_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SR_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDurationPositive("SR_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SR_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- topologymetrics ---

	cfg.DephealthEnabled, err = getEnvBool("SR_DEPHEALTH_ENABLED", false)
	if err != nil {
		return nil, fmt.Errorf("SR_DEPHEALTH_ENABLED: %w", err)
	}
	if cfg.DephealthEnabled && cfg.BackendMode != BackendModeRemote {
		return nil, fmt.Errorf("SR_DEPHEALTH_ENABLED: мониторинг доступен только в режиме remote")
	}

	cfg.DephealthGroup = getEnvDefault("SR_DEPHEALTH_GROUP", "staff-roster")

	cfg.DephealthCheckInterval, err = getEnvDurationPositive("SR_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SR_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	cfg.DephealthTLSSkipVerify, err = getEnvBool("SR_DEPHEALTH_TLS_SKIP_VERIFY", false)
	if err != nil {
		return nil, fmt.Errorf("SR_DEPHEALTH_TLS_SKIP_VERIFY: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	return SetupLoggerTo(cfg, os.Stdout)
}

// SetupLoggerTo создаёт логгер с выводом в w (CLI пишет логи в stderr).
func SetupLoggerTo(cfg *Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvDurationPositive — как getEnvDuration, но значение должно быть > 0.
func getEnvDurationPositive(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := getEnvDuration(key, defaultVal)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("значение должно быть > 0")
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// validateURL проверяет, что строка — абсолютный http(s) URL.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("некорректный URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q должен начинаться с http:// или https://", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q не содержит хоста", raw)
	}
	return nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
