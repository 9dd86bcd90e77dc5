package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"gridbot/internal/alerts"
	"gridbot/internal/engine"
)

const operatorPollTimeout = 25 * time.Second

// operator answers pause/resume/status commands from the configured
// telegram chat. Messages from any other chat are ignored.
type operator struct {
	coord  *engine.Coordinator
	alerts *alerts.Telegram
	log    *zap.Logger
}

func (o *operator) run(ctx context.Context) {
	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}
		updates, err := o.alerts.GetUpdates(ctx, offset, operatorPollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			o.log.Warn("telegram poll failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}
		for _, u := range updates {
			if u.ID >= offset {
				offset = u.ID + 1
			}
			if u.ChatID != o.alerts.ChatID() {
				continue
			}
			o.handle(ctx, u.Text)
		}
	}
}

func (o *operator) handle(ctx context.Context, text string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return
	}
	switch strings.ToLower(fields[0]) {
	case "/pause":
		o.coord.Pause()
		o.log.Info("trading paused by operator")
		o.alerts.Notify(ctx, "paused: no new orders until /resume")
	case "/resume":
		o.coord.Resume()
		o.log.Info("trading resumed by operator")
		o.alerts.Notify(ctx, "resumed")
	case "/status":
		o.alerts.Notify(ctx, "%s", o.coord.Status())
	case "/help", "/start":
		o.alerts.Notify(ctx, "commands: /pause /resume /status")
	}
}
