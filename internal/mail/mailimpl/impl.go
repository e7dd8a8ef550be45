package mailimpl

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gfw-api/story-api/internal/mail"
	"github.com/gfw-api/story-api/pkg/config"
	"github.com/gfw-api/story-api/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Logger logger.Logger
}

type MailImpl struct {
	rdb     *redis.Client
	channel string
	Logger  logger.Logger
}

func New(opts Opts) (*MailImpl, error) {
	redisOpts, err := redis.ParseURL(opts.Config.Redis.Url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	rdb := redis.NewClient(redisOpts)

	opts.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("failed to ping redis: %w", err)
			}
			opts.Logger.Info("Connected to redis")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return rdb.Close()
		},
	})

	return &MailImpl{
		rdb:     rdb,
		channel: opts.Config.Redis.MailQueue,
		Logger:  opts.Logger.WithComponent("MailClient"),
	}, nil
}

var _ mail.Client = (*MailImpl)(nil)

// SendMail publishes the message onto the queue channel the mail
// collaborator consumes.
func (m *MailImpl) SendMail(ctx context.Context, template string, data map[string]any, recipients []mail.Recipient) error {
	payload, err := json.Marshal(mail.Message{
		Template:   template,
		Data:       data,
		Recipients: recipients,
	})
	if err != nil {
		return fmt.Errorf("failed to encode mail payload: %w", err)
	}

	m.Logger.Debug("Publishing mail", "template", template, "recipients", len(recipients))

	if err := m.rdb.Publish(ctx, m.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish mail payload: %w", err)
	}
	return nil
}
