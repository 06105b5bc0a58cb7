package core

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Kind is the event shape a Context wraps.
type Kind int

const (
	KindSlash Kind = iota + 1
	KindPrefix
	KindComponent
)

func (k Kind) String() string {
	switch k {
	case KindSlash:
		return "slash"
	case KindPrefix:
		return "prefix"
	case KindComponent:
		return "component"
	default:
		return "unknown"
	}
}

var (
	ErrUnsupported = errors.New("not supported for this event kind")
	ErrNoGuild     = errors.New("event did not happen in a guild")
)

// Context gives handlers one surface over slash commands, prefix messages and
// component interactions. Each invocation gets its own Context.
type Context struct {
	session     Session
	kind        Kind
	interaction *discordgo.InteractionCreate
	message     *discordgo.MessageCreate
	name        string
	args        []string

	mu        sync.Mutex
	responded bool
	member    *discordgo.Member
}

// NewSlashContext wraps a chat input command interaction.
func NewSlashContext(s Session, i *discordgo.InteractionCreate) *Context {
	return &Context{session: s, kind: KindSlash, interaction: i, name: i.ApplicationCommandData().Name}
}

// NewComponentContext wraps a button or select menu interaction.
func NewComponentContext(s Session, i *discordgo.InteractionCreate) *Context {
	return &Context{session: s, kind: KindComponent, interaction: i, name: i.MessageComponentData().CustomID}
}

// NewPrefixContext wraps a prefix command message with its parsed name and args.
func NewPrefixContext(s Session, m *discordgo.MessageCreate, name string, args []string) *Context {
	return &Context{session: s, kind: KindPrefix, message: m, name: name, args: args}
}

func (c *Context) Kind() Kind { return c.kind }

// Name is the command name, or the custom id for components.
func (c *Context) Name() string { return c.name }

// Interaction returns the raw interaction, nil for prefix commands.
func (c *Context) Interaction() *discordgo.InteractionCreate { return c.interaction }

// Message returns the raw message, nil for interactions.
func (c *Context) Message() *discordgo.MessageCreate { return c.message }

// ID returns the id of the underlying interaction or message.
func (c *Context) ID() string {
	if c.interaction != nil {
		return c.interaction.ID
	}
	return c.message.ID
}

func (c *Context) GuildID() string {
	if c.interaction != nil {
		return c.interaction.GuildID
	}
	return c.message.GuildID
}

func (c *Context) ChannelID() string {
	if c.interaction != nil {
		return c.interaction.ChannelID
	}
	return c.message.ChannelID
}

// User returns the invoking user.
func (c *Context) User() *discordgo.User {
	if c.interaction != nil {
		if c.interaction.Member != nil && c.interaction.Member.User != nil {
			return c.interaction.Member.User
		}
		return c.interaction.User
	}
	return c.message.Author
}

// Member returns the invoking guild member. Interactions already carry it;
// for messages it is fetched once and cached.
func (c *Context) Member(ctx context.Context) (*discordgo.Member, error) {
	guildID := c.GuildID()
	if guildID == "" {
		return nil, ErrNoGuild
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.member != nil {
		return c.member, nil
	}
	if c.interaction != nil && c.interaction.Member != nil && c.interaction.Member.User != nil {
		c.member = c.interaction.Member
		return c.member, nil
	}

	user := c.User()
	if user == nil {
		return nil, ErrNoGuild
	}
	m, err := c.session.GuildMember(guildID, user.ID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	c.member = m
	return m, nil
}

// Reply answers the invocation with plain content.
func (c *Context) Reply(content string) error {
	return c.ReplyWith(&discordgo.InteractionResponseData{Content: content})
}

// ReplyEphemeral answers so only the invoking user sees it. Prefix commands
// cannot reply ephemerally and get a normal reply.
func (c *Context) ReplyEphemeral(content string) error {
	return c.ReplyWith(&discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

// ReplyWith answers with a full response. After the first response to an
// interaction, further replies are sent as followups.
func (c *Context) ReplyWith(data *discordgo.InteractionResponseData) error {
	if c.interaction == nil {
		_, err := c.session.ChannelMessageSendComplex(c.message.ChannelID, &discordgo.MessageSend{
			Content:         data.Content,
			Embeds:          data.Embeds,
			Components:      data.Components,
			Files:           data.Files,
			AllowedMentions: data.AllowedMentions,
			Reference:       c.message.Reference(),
		})
		return err
	}

	c.mu.Lock()
	followup := c.responded
	c.responded = true
	c.mu.Unlock()

	if followup {
		_, err := c.session.FollowupMessageCreate(c.interaction.Interaction, true, &discordgo.WebhookParams{
			Content:         data.Content,
			Embeds:          data.Embeds,
			Components:      data.Components,
			Files:           data.Files,
			AllowedMentions: data.AllowedMentions,
			Flags:           data.Flags,
		})
		return err
	}
	return c.session.InteractionRespond(c.interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// Send posts content to the originating channel, independent of any reply.
func (c *Context) Send(content string) (*discordgo.Message, error) {
	return c.session.ChannelMessageSend(c.ChannelID(), content)
}

// Defer acknowledges an interaction so the reply can come later. For prefix
// commands it shows the typing indicator.
func (c *Context) Defer(ephemeral bool) error {
	if c.interaction == nil {
		return c.session.ChannelTyping(c.message.ChannelID)
	}

	c.mu.Lock()
	c.responded = true
	c.mu.Unlock()

	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return c.session.InteractionRespond(c.interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
}

// EditReply replaces the content of the original interaction response.
func (c *Context) EditReply(content string) error {
	if c.interaction == nil {
		return ErrUnsupported
	}
	_, err := c.session.InteractionResponseEdit(c.interaction.Interaction, &discordgo.WebhookEdit{Content: &content})
	return err
}

// UpdateMessage replaces the message a component is attached to. It counts as
// the interaction's response.
func (c *Context) UpdateMessage(data *discordgo.InteractionResponseData) error {
	if c.kind != KindComponent {
		return ErrUnsupported
	}
	c.mu.Lock()
	c.responded = true
	c.mu.Unlock()
	return c.session.InteractionRespond(c.interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: data,
	})
}

// Option returns the named slash command option, looking inside the invoked
// subcommand when there is one.
func (c *Context) Option(name string) (OptionValue, bool) {
	if c.kind != KindSlash {
		return OptionValue{}, false
	}
	_, leaf := leafOptions(c.interaction.ApplicationCommandData().Options)
	for _, o := range leaf {
		if o.Name == name {
			return OptionValue{Name: o.Name, Type: o.Type, Raw: o.Value}, true
		}
	}
	return OptionValue{}, false
}

// Subcommand returns the invoked subcommand path, e.g. "config set", or "".
func (c *Context) Subcommand() string {
	if c.kind != KindSlash {
		return ""
	}
	path, _ := leafOptions(c.interaction.ApplicationCommandData().Options)
	return strings.Join(path, " ")
}

// Args returns the whitespace separated arguments of a prefix command.
func (c *Context) Args() []string {
	return append([]string(nil), c.args...)
}

// Arg returns the i-th prefix argument.
func (c *Context) Arg(i int) (string, bool) {
	if i < 0 || i >= len(c.args) {
		return "", false
	}
	return c.args[i], true
}

// CustomID returns the component custom id.
func (c *Context) CustomID() string {
	if c.kind != KindComponent {
		return ""
	}
	return c.interaction.MessageComponentData().CustomID
}

// Values returns the selected values of a select menu.
func (c *Context) Values() []string {
	if c.kind != KindComponent {
		return nil
	}
	return c.interaction.MessageComponentData().Values
}
