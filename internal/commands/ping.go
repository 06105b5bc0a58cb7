package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/keshon/harmonix/internal/core"
)

var pingOptions = core.CommandOptions{
	Name:        "ping",
	Description: "Check bot latency",
	Type:        core.Slash,
}

type latencySource interface {
	HeartbeatLatency() time.Duration
}

type Ping struct{}

func (p *Ping) Execute(_ context.Context, bot core.Bot, c *core.Context) error {
	if ls, ok := bot.Session().(latencySource); ok {
		return c.Reply(fmt.Sprintf("🏓 Pong! Response time: `%dms`", ls.HeartbeatLatency().Milliseconds()))
	}
	return c.Reply("🏓 Pong!")
}
