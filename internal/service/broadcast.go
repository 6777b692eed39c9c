package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmeshcher/flowershop-admin/internal/model"
)

// SendBroadcast отправляет сообщение всем пользователям. Счётчики
// доставленных и недоставленных сообщений считает магазин.
func (s *Service) SendBroadcast(ctx context.Context, b model.Broadcast) (*model.BroadcastResult, error) {
	b.Text = strings.TrimSpace(b.Text)
	b.ImageURL = strings.TrimSpace(b.ImageURL)
	if err := s.validate.Struct(b); err != nil {
		return nil, err
	}

	res, err := s.api.SendBroadcast(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("send broadcast: %w", err)
	}

	s.record(ctx, "broadcast.send", "users", fmt.Sprintf("sent=%d failed=%d", res.Sent, res.Failed))
	return res, nil
}
