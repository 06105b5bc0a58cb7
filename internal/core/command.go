package core

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Session is the part of *discordgo.Session the core talks to.
type Session interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
}

// Bot is what handlers receive alongside their context.
type Bot interface {
	Session() Session
	Registry() *Registry
	Logger() zerolog.Logger
}

// CommandHandler runs a slash or prefix command. A new value is built from
// its factory for every invocation, so implementations must not keep state
// between calls.
type CommandHandler interface {
	Execute(ctx context.Context, bot Bot, c *Context) error
}

// ComponentHandler runs a button or select menu interaction.
type ComponentHandler interface {
	Execute(ctx context.Context, bot Bot, c *Context) error
}

// EventHandler runs on a gateway event. payload is the typed discordgo event,
// e.g. *discordgo.Ready.
type EventHandler interface {
	Execute(ctx context.Context, bot Bot, payload any) error
}

// Cooldowner is implemented by commands that want a custom throttled reply.
type Cooldowner interface {
	Cooldown(ctx context.Context, bot Bot, c *Context, expiresAt time.Time) (*discordgo.InteractionResponseData, error)
}

// AutoCompleter is implemented by commands with autocompleted options. choices
// starts empty; the returned slice is sent back to Discord.
type AutoCompleter interface {
	AutoComplete(ctx context.Context, bot Bot, event *discordgo.InteractionCreate, choices []*discordgo.ApplicationCommandOptionChoice) ([]*discordgo.ApplicationCommandOptionChoice, error)
}

type (
	CommandFactory   func() CommandHandler
	ComponentFactory func() ComponentHandler
	EventFactory     func() EventHandler
)
