// Пакет rosterclient — HTTP-клиент к REST-бэкенду ростера.
// Четыре операции над коллекцией /users: List, Create, Update, Delete.
// Каждая операция — ровно один round-trip, без повторов и без кэширования.
// Опционально: service account token (client_credentials), кастомный CA,
// проверка ответов по OpenAPI-контракту.
package rosterclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bigkaa/staffroster/internal/domain/model"
)

// Имена операций (лейблы метрик и поле Op ошибок).
const (
	OpList   = "list"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// maxResponseBody — предел чтения тела ответа.
const maxResponseBody = 4 << 20

// maxErrorBody — сколько байт тела ответа сохраняется в RemoteRejection.
const maxErrorBody = 512

// Options — параметры клиента.
type Options struct {
	// BaseURL — базовый URL бэкенда (например, http://roster-backend:3000)
	BaseURL string
	// Timeout — таймаут запроса (0 — без таймаута)
	Timeout time.Duration
	// CACertPath — путь к CA-сертификату (пустая строка — системный пул)
	CACertPath string
	// TokenURL — token endpoint для client_credentials (пустая строка — без авторизации)
	TokenURL string
	// ClientID, ClientSecret — credentials сервисного аккаунта
	ClientID     string
	ClientSecret string //nolint:gosec // G101: поле структуры, не содержит секрет напрямую
	// Strict — проверять ответы по OpenAPI-контракту
	Strict bool
	// HTTPClient — готовый HTTP-клиент (тесты); перекрывает Timeout и CACertPath
	HTTPClient *http.Client
}

// Client — HTTP-клиент к бэкенду ростера.
type Client struct {
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string //nolint:gosec // G101: поле структуры, не содержит секрет напрямую

	httpClient *http.Client
	contract   *contract // nil — проверка ответов выключена
	logger     *slog.Logger

	// Кэш токена доступа
	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New создаёт клиент бэкенда.
func New(opts Options, logger *slog.Logger) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("не задан базовый URL бэкенда")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
		if opts.CACertPath != "" {
			tlsConfig, err := buildTLSConfig(opts.CACertPath)
			if err != nil {
				return nil, fmt.Errorf("загрузка CA-сертификата бэкенда: %w", err)
			}
			httpClient.Transport = &http.Transport{
				TLSClientConfig: tlsConfig,
			}
			logger.Info("CA-сертификат бэкенда добавлен в пул доверия",
				slog.String("ca_cert", opts.CACertPath),
			)
		}
	}

	c := &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		tokenURL:     opts.TokenURL,
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		httpClient:   httpClient,
		logger:       logger.With(slog.String("component", "roster_client")),
	}

	if opts.Strict {
		ct, err := loadContract(context.Background())
		if err != nil {
			return nil, err
		}
		c.contract = ct
	}

	return c, nil
}

// BaseURL возвращает базовый URL бэкенда.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// --- Операции ---

// List запрашивает всю коллекцию. GET /users
func (c *Client) List(ctx context.Context) ([]model.UserRecord, error) {
	var users []model.UserRecord
	if err := c.do(ctx, OpList, http.MethodGet, pathUsers, nil, nil, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.UserRecord{}
	}
	return users, nil
}

// Create создаёт запись. POST /users
// Возвращает запись с назначенным бэкендом id.
func (c *Client) Create(ctx context.Context, fields model.UserFields) (model.UserRecord, error) {
	var created model.UserRecord
	if err := c.do(ctx, OpCreate, http.MethodPost, pathUsers, nil, fields, &created); err != nil {
		return model.UserRecord{}, err
	}
	if created.ID == "" {
		return model.UserRecord{}, &TransportError{Op: OpCreate, Err: fmt.Errorf("в ответе отсутствует id")}
	}
	return created, nil
}

// Update обновляет запись. PUT /users/{id}
func (c *Client) Update(ctx context.Context, id string, fields model.UserFields) (model.UserRecord, error) {
	var updated model.UserRecord
	params := map[string]string{"id": id}
	if err := c.do(ctx, OpUpdate, http.MethodPut, pathUserByID, params, fields, &updated); err != nil {
		return model.UserRecord{}, err
	}
	// Бэкенд может не вернуть id в теле ответа на PUT
	if updated.ID == "" {
		updated.ID = id
	}
	return updated, nil
}

// Delete удаляет запись. DELETE /users/{id}
// Тело ответа не используется.
func (c *Client) Delete(ctx context.Context, id string) error {
	params := map[string]string{"id": id}
	return c.do(ctx, OpDelete, http.MethodDelete, pathUserByID, params, nil, nil)
}

// --- Readiness checker ---

// CheckReady проверяет доступность бэкенда через GET /users.
// Реализует handlers.ReadinessChecker.
func (c *Client) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	users, err := c.List(ctx)
	if err != nil {
		return "fail", fmt.Sprintf("бэкенд недоступен: %v", err)
	}
	return "ok", fmt.Sprintf("бэкенд доступен, записей: %d", len(users))
}

// --- HTTP helpers ---

// do выполняет один round-trip.
// contractPath — путь в терминах контракта (/users или /users/{id}),
// pathParams — значения параметров пути. body сериализуется в JSON,
// target (если не nil) заполняется из JSON-ответа.
func (c *Client) do(
	ctx context.Context,
	op, method, contractPath string,
	pathParams map[string]string,
	body, target any,
) (err error) {
	start := time.Now()
	defer func() {
		backendRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		backendRequestsTotal.WithLabelValues(op, outcomeOf(err)).Inc()
	}()

	var bodyReader io.Reader
	if body != nil {
		data, mErr := json.Marshal(body)
		if mErr != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("сериализация тела запроса: %w", mErr)}
		}
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+expandPath(contractPath, pathParams), bodyReader)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("создание запроса: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokenURL != "" {
		token, tErr := c.getToken(ctx)
		if tErr != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("получение токена: %w", tErr)}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("чтение ответа: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("Бэкенд отклонил запрос",
			slog.String("operation", op),
			slog.Int("status", resp.StatusCode),
		)
		return &RemoteRejection{Op: op, StatusCode: resp.StatusCode, Body: truncate(string(respBody), maxErrorBody)}
	}

	if c.contract != nil {
		if vErr := c.contract.validateResponse(ctx, req, contractPath, pathParams, resp, respBody); vErr != nil {
			return &TransportError{Op: op, Err: vErr}
		}
	}

	if target != nil {
		if err := json.Unmarshal(respBody, target); err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("декодирование ответа: %w", err)}
		}
	}

	return nil
}

// --- Аутентификация ---

// getToken возвращает актуальный access token, обновляя при необходимости.
// Токен обновляется за 30 секунд до истечения.
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Add(30*time.Second).Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("создание запроса токена: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return "", fmt.Errorf("запрос токена: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("token endpoint вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"` //nolint:gosec // G117: JSON-маппинг OAuth2 ответа
		ExpiresIn   int    `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("декодирование token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("пустой access_token в ответе")
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)

	c.logger.Debug("Токен сервисного аккаунта обновлён",
		slog.Time("expires_at", c.tokenExpiry),
	)

	return c.accessToken, nil
}

// --- Вспомогательные функции ---

// expandPath подставляет экранированные параметры в путь контракта.
func expandPath(path string, params map[string]string) string {
	for name, value := range params {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	return path
}

// outcomeOf возвращает лейбл исхода для метрик.
func outcomeOf(err error) string {
	switch err.(type) {
	case nil:
		return outcomeOK
	case *RemoteRejection:
		return outcomeRejected
	default:
		return outcomeTransport
	}
}

// truncate обрезает строку до n байт.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA-сертификатом.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs:    caCertPool,
		MinVersion: tls.VersionTLS12,
	}, nil
}
