// contract.go — проверка ответов бэкенда по встроенному OpenAPI-контракту.
// Включается SR_BACKEND_STRICT=true. Нарушение контракта — TransportError
// («некорректный ответ»), т.к. ответ нельзя использовать для обновления состояния.
package rosterclient

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
)

// contractSpec — OpenAPI-документ бэкенда.
//
//go:embed openapi/roster-backend.yaml
var contractSpec []byte

// Пути контракта.
const (
	pathUsers    = "/users"
	pathUserByID = "/users/{id}"
)

// contract — загруженный и провалидированный OpenAPI-документ.
type contract struct {
	doc *openapi3.T
}

// loadContract загружает встроенный документ и проверяет его корректность.
func loadContract(ctx context.Context) (*contract, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(contractSpec)
	if err != nil {
		return nil, fmt.Errorf("загрузка OpenAPI-контракта: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("некорректный OpenAPI-контракт: %w", err)
	}
	return &contract{doc: doc}, nil
}

// route строит маршрут контракта для известной операции.
// Маршрут определяется операцией клиента, а не URL: базовый URL бэкенда
// может содержать префикс пути, которого нет в контракте.
func (c *contract) route(path, method string) (*routers.Route, error) {
	item := c.doc.Paths.Value(path)
	if item == nil {
		return nil, fmt.Errorf("путь %s отсутствует в контракте", path)
	}
	op := item.GetOperation(method)
	if op == nil {
		return nil, fmt.Errorf("операция %s %s отсутствует в контракте", method, path)
	}
	return &routers.Route{
		Spec:      c.doc,
		Path:      path,
		PathItem:  item,
		Method:    method,
		Operation: op,
	}, nil
}

// validateResponse проверяет статус, Content-Type и тело ответа.
func (c *contract) validateResponse(
	ctx context.Context,
	req *http.Request,
	path string,
	pathParams map[string]string,
	resp *http.Response,
	body []byte,
) error {
	route, err := c.route(path, req.Method)
	if err != nil {
		return err
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
		},
		Status:  resp.StatusCode,
		Header:  resp.Header,
		Body:    io.NopCloser(bytes.NewReader(body)),
		Options: &openapi3filter.Options{},
	}

	if err := openapi3filter.ValidateResponse(ctx, input); err != nil {
		return fmt.Errorf("ответ нарушает контракт: %w", err)
	}
	return nil
}
