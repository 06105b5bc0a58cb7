// Package dispatch routes inbound gateway events to registered handlers,
// applying permission checks and cooldowns before execution.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/keshon/harmonix/internal/cooldown"
	"github.com/keshon/harmonix/internal/core"
)

// Outcome is where an event left the pipeline.
type Outcome int

const (
	Dropped Outcome = iota
	Denied
	Throttled
	Executed
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Denied:
		return "denied"
	case Throttled:
		return "throttled"
	case Executed:
		return "executed"
	case Failed:
		return "failed"
	default:
		return "dropped"
	}
}

var (
	ErrHandlerPanic = errors.New("handler panicked")
	ErrNilHandler   = errors.New("factory returned nil handler")
)

const (
	deniedMessage   = "You do not have permission to use this command. Required: %s"
	cooldownMessage = "You can use this command again <t:%d:R>."
)

// Dispatcher is the single entry point for interaction, message and
// lifecycle events.
type Dispatcher struct {
	bot       core.Bot
	registry  *core.Registry
	cooldowns *cooldown.Tracker
	prefix    string
	now       func() time.Time
	log       zerolog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPrefix sets the prefix for text commands. An empty prefix disables them.
func WithPrefix(prefix string) Option {
	return func(d *Dispatcher) { d.prefix = prefix }
}

// WithClock replaces time.Now for cooldown checks.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithLogger sets the dispatcher logger.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// New returns a dispatcher reading handlers from bot.Registry().
func New(bot core.Bot, tracker *cooldown.Tracker, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		bot:       bot,
		registry:  bot.Registry(),
		cooldowns: tracker,
		now:       time.Now,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With().Str("component", "dispatcher").Logger()
	return d
}

// OnInteraction is the discordgo handler for InteractionCreate.
func (d *Dispatcher) OnInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	d.HandleInteraction(context.Background(), i)
}

// OnMessage is the discordgo handler for MessageCreate.
func (d *Dispatcher) OnMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	d.HandleMessage(context.Background(), m)
}

// OnEvent is the discordgo handler for every raw gateway event.
func (d *Dispatcher) OnEvent(_ *discordgo.Session, e *discordgo.Event) {
	if e == nil || e.Struct == nil {
		return
	}
	d.HandleEvent(context.Background(), core.EventKey(e.Type), e.Struct)
}

// HandleInteraction classifies i and runs it through the pipeline.
func (d *Dispatcher) HandleInteraction(ctx context.Context, i *discordgo.InteractionCreate) Outcome {
	if i == nil || i.Interaction == nil {
		return Dropped
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		if data.CommandType != discordgo.ChatApplicationCommand && data.CommandType != 0 {
			return Dropped
		}
		entry, ok := d.registry.Command(core.Slash, data.Name)
		if !ok {
			d.log.Debug().Str("command", data.Name).Msg("unknown slash command")
			return Dropped
		}
		return d.runCommand(ctx, entry, core.NewSlashContext(d.bot.Session(), i))

	case discordgo.InteractionApplicationCommandAutocomplete:
		return d.autocomplete(ctx, i)

	case discordgo.InteractionMessageComponent:
		switch i.MessageComponentData().ComponentType {
		case discordgo.ButtonComponent,
			discordgo.SelectMenuComponent,
			discordgo.UserSelectMenuComponent,
			discordgo.RoleSelectMenuComponent,
			discordgo.MentionableSelectMenuComponent,
			discordgo.ChannelSelectMenuComponent:
			return d.runComponent(ctx, i)
		}
	}
	return Dropped
}

// HandleMessage runs a prefix command carried by m.
func (d *Dispatcher) HandleMessage(ctx context.Context, m *discordgo.MessageCreate) Outcome {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot {
		return Dropped
	}
	name, args, ok := ParsePrefix(d.prefix, m.Content)
	if !ok {
		return Dropped
	}
	entry, ok := d.registry.Command(core.Prefix, name)
	if !ok {
		return Dropped
	}
	return d.runCommand(ctx, entry, core.NewPrefixContext(d.bot.Session(), m, name, args))
}

// HandleEvent runs every handler bound to key. A failing handler does not
// stop the others.
func (d *Dispatcher) HandleEvent(ctx context.Context, key core.EventKey, payload any) Outcome {
	factories := d.registry.Events(key)
	if len(factories) == 0 {
		return Dropped
	}

	outcome := Executed
	for _, factory := range factories {
		log := d.log.With().Str("event", string(key)).Str("invocation", uuid.NewString()).Logger()
		err := guard(func() error {
			h := factory()
			if h == nil {
				return ErrNilHandler
			}
			return h.Execute(ctx, d.bot, payload)
		})
		if err != nil {
			log.Error().Err(err).Msg("event handler failed")
			outcome = Failed
		}
	}
	return outcome
}

func (d *Dispatcher) runCommand(ctx context.Context, entry core.CommandEntry, c *core.Context) Outcome {
	opts := entry.Options
	log := d.log.With().
		Str("command", opts.Name).
		Str("kind", c.Kind().String()).
		Str("event_id", c.ID()).
		Str("invocation", uuid.NewString()).
		Logger()

	if !d.authorize(ctx, log, opts.MemberPermission, c) {
		return Denied
	}
	if d.throttle(ctx, log, entry, c) {
		return Throttled
	}

	err := guard(func() error {
		h := entry.Factory()
		if h == nil {
			return ErrNilHandler
		}
		return h.Execute(ctx, d.bot, c)
	})
	if err != nil {
		log.Error().Err(err).Msg("command failed")
		return Failed
	}
	log.Debug().Msg("command executed")
	return Executed
}

func (d *Dispatcher) runComponent(ctx context.Context, i *discordgo.InteractionCreate) Outcome {
	customID := i.MessageComponentData().CustomID
	entry, ok := d.lookupComponent(customID)
	if !ok {
		d.log.Debug().Str("custom_id", customID).Msg("no component for custom id")
		return Dropped
	}

	c := core.NewComponentContext(d.bot.Session(), i)
	log := d.log.With().
		Str("component_id", entry.Options.ID).
		Str("event_id", i.ID).
		Str("invocation", uuid.NewString()).
		Logger()

	if !d.authorize(ctx, log, entry.Options.MemberPermission, c) {
		return Denied
	}

	err := guard(func() error {
		h := entry.Factory()
		if h == nil {
			return ErrNilHandler
		}
		return h.Execute(ctx, d.bot, c)
	})
	if err != nil {
		log.Error().Err(err).Msg("component failed")
		return Failed
	}
	return Executed
}

// lookupComponent matches the full custom id first, then the part before the
// first ':' so one handler can serve ids like "confirm:1234".
func (d *Dispatcher) lookupComponent(customID string) (core.ComponentEntry, bool) {
	if entry, ok := d.registry.Component(customID); ok {
		return entry, true
	}
	if base, _, found := strings.Cut(customID, ":"); found {
		return d.registry.Component(base)
	}
	return core.ComponentEntry{}, false
}

func (d *Dispatcher) autocomplete(ctx context.Context, i *discordgo.InteractionCreate) Outcome {
	name := i.ApplicationCommandData().Name
	entry, ok := d.registry.Command(core.Slash, name)
	if !ok {
		return Dropped
	}

	log := d.log.With().Str("command", name).Str("event_id", i.ID).Logger()
	var choices []*discordgo.ApplicationCommandOptionChoice
	handled := false
	err := guard(func() error {
		ac, ok := entry.Factory().(core.AutoCompleter)
		if !ok {
			return nil
		}
		handled = true
		var err error
		choices, err = ac.AutoComplete(ctx, d.bot, i, []*discordgo.ApplicationCommandOptionChoice{})
		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("autocomplete failed")
		return Failed
	}
	if !handled {
		return Dropped
	}
	if err := core.RespondChoices(d.bot.Session(), i, choices); err != nil {
		log.Warn().Err(err).Msg("failed to send autocomplete choices")
		return Failed
	}
	return Executed
}

// authorize reports whether the invoking member holds required. On denial it
// sends one ephemeral reply.
func (d *Dispatcher) authorize(ctx context.Context, log zerolog.Logger, required int64, c *core.Context) bool {
	if required == 0 {
		return true
	}

	granted, err := d.memberPermissions(ctx, c)
	if err != nil {
		log.Warn().Err(err).Msg("could not resolve member permissions")
	}
	if err == nil && core.HasPermissions(granted, required) {
		return true
	}

	if err := c.ReplyEphemeral(fmt.Sprintf(deniedMessage, core.DescribePermissions(required))); err != nil {
		log.Warn().Err(err).Msg("failed to send permission denial")
	}
	log.Info().Str("user", userID(c)).Msg("permission denied")
	return false
}

func (d *Dispatcher) memberPermissions(ctx context.Context, c *core.Context) (int64, error) {
	if i := c.Interaction(); i != nil {
		if i.Member == nil {
			return 0, core.ErrNoGuild
		}
		return i.Member.Permissions, nil
	}
	if c.GuildID() == "" {
		return 0, core.ErrNoGuild
	}
	return d.bot.Session().UserChannelPermissions(userID(c), c.ChannelID(), discordgo.WithContext(ctx))
}

// throttle reports whether the command is on cooldown and, if so, replies.
func (d *Dispatcher) throttle(ctx context.Context, log zerolog.Logger, entry core.CommandEntry, c *core.Context) bool {
	opts := entry.Options
	userCD, guildCD := opts.UserCooldownDuration(), opts.GuildCooldownDuration()
	if userCD == 0 && guildCD == 0 {
		return false
	}

	res := d.cooldowns.Check(opts.Name, userID(c), c.GuildID(), userCD, guildCD, d.now())
	if !res.Throttled {
		return false
	}

	var data *discordgo.InteractionResponseData
	err := guard(func() error {
		cd, ok := entry.Factory().(core.Cooldowner)
		if !ok {
			return nil
		}
		var err error
		data, err = cd.Cooldown(ctx, d.bot, c, res.ExpiresAt)
		return err
	})
	if err != nil {
		log.Warn().Err(err).Msg("custom cooldown reply failed")
		data = nil
	}
	if data == nil {
		data = &discordgo.InteractionResponseData{
			Content: fmt.Sprintf(cooldownMessage, res.ExpiresAt.Unix()),
			Flags:   discordgo.MessageFlagsEphemeral,
		}
	}

	if err := c.ReplyWith(data); err != nil {
		log.Warn().Err(err).Msg("failed to send cooldown reply")
	}
	log.Debug().Str("scope", res.Scope.String()).Time("expires_at", res.ExpiresAt).Msg("command throttled")
	return true
}

// ParsePrefix splits a prefix command into its lowercased name and the
// whitespace separated arguments that follow.
func ParsePrefix(prefix, content string) (name string, args []string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(content[len(prefix):])
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// guard runs fn and turns a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return fn()
}

func userID(c *core.Context) string {
	if u := c.User(); u != nil {
		return u.ID
	}
	return ""
}
