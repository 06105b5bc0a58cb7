package commands

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/harmonix/internal/core"
)

var echoOptions = core.CommandOptions{
	Name:         "echo",
	Description:  "Repeat a message",
	Type:         core.Both,
	UserCooldown: core.CooldownSeconds(2),
	Options: []core.Option{
		{Name: "text", Description: "What to repeat", Type: discordgo.ApplicationCommandOptionString, Required: true},
	},
}

type Echo struct{}

func (e *Echo) Execute(_ context.Context, _ core.Bot, c *core.Context) error {
	var text string
	if opt, ok := c.Option("text"); ok {
		text = opt.String()
	} else {
		text = strings.Join(c.Args(), " ")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return c.ReplyEphemeral("Nothing to echo.")
	}
	return c.ReplyWith(&discordgo.InteractionResponseData{
		Content:         text,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
}
