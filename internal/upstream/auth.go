package upstream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mmeshcher/flowershop-admin/internal/model"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
}

// Login обменивает логин и пароль сотрудника на токен доступа.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp loginResponse
	err := c.send(ctx, http.MethodPost, "/auth/login", "", nil, loginRequest{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return "", err
	}

	token := resp.AccessToken
	if token == "" {
		token = resp.Token
	}
	if token == "" {
		return "", fmt.Errorf("login response without token")
	}
	return token, nil
}

// Me проверяет токен и возвращает сотрудника, которому он выдан.
func (c *Client) Me(ctx context.Context, token string) (*model.Admin, error) {
	var admin model.Admin
	if err := c.send(ctx, http.MethodGet, "/auth/me", token, nil, nil, &admin); err != nil {
		return nil, err
	}
	return &admin, nil
}
