package service

import (
	"context"

	"medtrain_backend/pkg/logger"

	"go.uber.org/zap"
)

type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// LogMailer 只记录日志，生产环境由邮件网关替换
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg EmailMessage) error {
	logger.Log.Info("Email sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
