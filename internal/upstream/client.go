// Package upstream предоставляет клиент для REST API цветочного магазина.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrUnauthorized возвращается, если API отклонил токен администратора.
	ErrUnauthorized = errors.New("upstream: unauthorized")
	// ErrNotFound возвращается, если запрошенная запись не найдена.
	ErrNotFound = errors.New("upstream: not found")
	// ErrNoToken возвращается, если в контексте запроса нет токена сессии.
	ErrNoToken = errors.New("upstream: no session token")
)

const maxErrorBody = 64 << 10

// APIError описывает ответ API с кодом ошибки. Message содержит текст ошибки
// из тела ответа без изменений.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Message)
}

// Unwrap позволяет сравнивать ошибку через errors.Is с ErrUnauthorized и ErrNotFound.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// Message возвращает текст ошибки API, если err вызвана ответом API.
func Message(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message, true
	}
	return "", false
}

type tokenKey struct{}

// WithToken возвращает контекст, запросы из которого отправляются с указанным токеном.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext извлекает токен, установленный WithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

// Client инкапсулирует HTTP-взаимодействие с API магазина.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент API магазина по указанному базовому адресу.
func NewClient(baseURL string, timeout time.Duration) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	token, ok := TokenFromContext(ctx)
	if !ok {
		return ErrNoToken
	}
	return c.send(ctx, method, path, token, query, in, out)
}

func (c *Client) send(ctx context.Context, method, path, token string, query url.Values, in, out any) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("upstream client not configured")
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// errorMessage достаёт текст ошибки из тела ответа: сначала поля detail,
// error и message JSON-объекта, затем само тело.
func errorMessage(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}

	if trimmed[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err == nil {
			for _, key := range []string{"detail", "error", "message"} {
				v, ok := fields[key]
				if !ok {
					continue
				}
				var s string
				if err := json.Unmarshal(v, &s); err == nil && s != "" {
					return s
				}
				var details []struct {
					Msg string `json:"msg"`
				}
				if err := json.Unmarshal(v, &details); err == nil && len(details) > 0 {
					msgs := make([]string, 0, len(details))
					for _, d := range details {
						if d.Msg != "" {
							msgs = append(msgs, d.Msg)
						}
					}
					if len(msgs) > 0 {
						return strings.Join(msgs, "; ")
					}
				}
			}
		}
	}

	return string(trimmed)
}

// list принимает как массив, так и объект с полем items.
type list[T any] struct {
	Items []T
}

func (l *list[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			Items []T `json:"items"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		l.Items = wrapped.Items
		return nil
	}
	return json.Unmarshal(data, &l.Items)
}
