package commands

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/harmonix/internal/core"
)

// Ready logs the gateway handshake.
type Ready struct{}

func (r *Ready) Execute(_ context.Context, bot core.Bot, payload any) error {
	ready, ok := payload.(*discordgo.Ready)
	if !ok {
		return fmt.Errorf("unexpected READY payload %T", payload)
	}

	log := bot.Logger()
	ev := log.Info().Int("guilds", len(ready.Guilds)).Str("session", ready.SessionID)
	if ready.User != nil {
		ev = ev.Str("user", ready.User.Username)
	}
	ev.Msg("connected to gateway")
	return nil
}
