package core

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/harmonix/internal/core/coretest"
)

func TestSlashContextReplyThenFollowup(t *testing.T) {
	s := coretest.NewSession()
	c := NewSlashContext(s, coretest.Slash("i1", "ping", "g1", "c1", "u1", 0))

	require.NoError(t, c.Reply("pong"))
	require.NoError(t, c.ReplyEphemeral("again"))

	require.Equal(t, 1, s.ResponseCount())
	assert.Equal(t, "pong", s.LastResponse().Data.Content)
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, s.LastResponse().Type)
	require.Len(t, s.Followups, 1)
	assert.Equal(t, "again", s.Followups[0].Content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, s.Followups[0].Flags)
}

func TestSlashContextDeferThenEdit(t *testing.T) {
	s := coretest.NewSession()
	c := NewSlashContext(s, coretest.Slash("i1", "ping", "g1", "c1", "u1", 0))

	require.NoError(t, c.Defer(true))
	require.NoError(t, c.EditReply("done"))

	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, s.LastResponse().Type)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, s.LastResponse().Data.Flags)
	assert.Equal(t, []string{"done"}, s.Edits)
}

func TestSendIsIndependentOfReply(t *testing.T) {
	s := coretest.NewSession()
	c := NewSlashContext(s, coretest.Slash("i1", "ping", "g1", "c9", "u1", 0))

	_, err := c.Send("hello channel")
	require.NoError(t, err)
	require.NoError(t, c.Reply("hello user"))

	assert.Equal(t, []coretest.Sent{{ChannelID: "c9", Content: "hello channel"}}, s.SentMessages())
	assert.Equal(t, 1, s.ResponseCount())
}

func TestPrefixContext(t *testing.T) {
	s := coretest.NewSession()
	m := coretest.Message("m1", "!ban @user reason text", "g1", "c1", "u1", false)
	c := NewPrefixContext(s, m, "ban", []string{"@user", "reason", "text"})

	assert.Equal(t, KindPrefix, c.Kind())
	assert.Equal(t, "m1", c.ID())
	assert.Equal(t, "u1", c.User().ID)
	assert.Equal(t, []string{"@user", "reason", "text"}, c.Args())

	arg, ok := c.Arg(1)
	assert.True(t, ok)
	assert.Equal(t, "reason", arg)
	_, ok = c.Arg(3)
	assert.False(t, ok)
	_, ok = c.Arg(-1)
	assert.False(t, ok)

	require.NoError(t, c.ReplyEphemeral("done"))
	sent := s.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "done", sent[0].Content)
	require.NotNil(t, sent[0].Reference)
	assert.Equal(t, "m1", sent[0].Reference.MessageID)

	assert.ErrorIs(t, c.EditReply("x"), ErrUnsupported)
	require.NoError(t, c.Defer(false))
	assert.Equal(t, []string{"c1"}, s.Typing)

	_, ok = c.Option("anything")
	assert.False(t, ok)
}

func TestMemberIsFetchedOnceForMessages(t *testing.T) {
	s := coretest.NewSession()
	s.Members["g1/u1"] = &discordgo.Member{User: &discordgo.User{ID: "u1"}, Nick: "nick"}
	c := NewPrefixContext(s, coretest.Message("m1", "!x", "g1", "c1", "u1", false), "x", nil)

	m, err := c.Member(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "nick", m.Nick)

	_, err = c.Member(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.MemberCalls)
}

func TestMemberFromInteractionAndDM(t *testing.T) {
	s := coretest.NewSession()

	c := NewSlashContext(s, coretest.Slash("i1", "ping", "g1", "c1", "u1", 0))
	m, err := c.Member(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", m.User.ID)
	assert.Zero(t, s.MemberCalls)

	dm := NewSlashContext(s, coretest.Slash("i2", "ping", "", "c1", "u2", 0))
	_, err = dm.Member(context.Background())
	assert.ErrorIs(t, err, ErrNoGuild)
	assert.Equal(t, "u2", dm.User().ID)
}

func TestOptionCoercion(t *testing.T) {
	s := coretest.NewSession()
	i := coretest.Slash("i1", "roll", "g1", "c1", "u1", 0,
		coretest.NumberOption("sides", discordgo.ApplicationCommandOptionInteger, 20),
		coretest.NumberOption("ratio", discordgo.ApplicationCommandOptionNumber, 0.5),
		coretest.StringOption("label", "d20"),
		&discordgo.ApplicationCommandInteractionDataOption{Name: "loud", Type: discordgo.ApplicationCommandOptionBoolean, Value: true},
	)
	c := NewSlashContext(s, i)

	sides, ok := c.Option("sides")
	require.True(t, ok)
	assert.Equal(t, int64(20), sides.Value())

	ratio, _ := c.Option("ratio")
	assert.Equal(t, 0.5, ratio.Value())

	label, _ := c.Option("label")
	assert.Equal(t, "d20", label.Value())
	_, isInt := label.Int()
	assert.False(t, isInt)

	loud, _ := c.Option("loud")
	assert.Equal(t, true, loud.Value())

	_, ok = c.Option("missing")
	assert.False(t, ok)
}

func TestOptionInsideSubcommand(t *testing.T) {
	s := coretest.NewSession()
	i := coretest.Slash("i1", "config", "g1", "c1", "u1", 0, &discordgo.ApplicationCommandInteractionDataOption{
		Name: "set",
		Type: discordgo.ApplicationCommandOptionSubCommand,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			coretest.StringOption("key", "prefix"),
		},
	})
	c := NewSlashContext(s, i)

	assert.Equal(t, "set", c.Subcommand())
	key, ok := c.Option("key")
	require.True(t, ok)
	assert.Equal(t, "prefix", key.String())
}

func TestComponentContext(t *testing.T) {
	s := coretest.NewSession()
	c := NewComponentContext(s, coretest.Component("i1", "colour", "g1", "u1", 0, discordgo.SelectMenuComponent, "red", "blue"))

	assert.Equal(t, KindComponent, c.Kind())
	assert.Equal(t, "colour", c.CustomID())
	assert.Equal(t, []string{"red", "blue"}, c.Values())
	assert.Empty(t, c.Subcommand())

	require.NoError(t, c.Reply("picked"))
	require.NoError(t, c.EditReply("changed"))
	assert.Equal(t, []string{"changed"}, s.Edits)
}

func TestUpdateMessageOnlyForComponents(t *testing.T) {
	s := coretest.NewSession()
	comp := NewComponentContext(s, coretest.Component("i1", "ban:cancel", "g1", "u1", 0, discordgo.ButtonComponent))

	require.NoError(t, comp.UpdateMessage(&discordgo.InteractionResponseData{Content: "cancelled"}))
	assert.Equal(t, discordgo.InteractionResponseUpdateMessage, s.LastResponse().Type)

	require.NoError(t, comp.Reply("later"))
	assert.Len(t, s.Followups, 1, "update counts as the first response")

	slash := NewSlashContext(s, coretest.Slash("i2", "ping", "g1", "c1", "u1", 0))
	assert.ErrorIs(t, slash.UpdateMessage(&discordgo.InteractionResponseData{}), ErrUnsupported)
}

func TestRespondChoicesCapsAndNeverSendsNull(t *testing.T) {
	s := coretest.NewSession()
	i := coretest.Autocomplete("i1", "roll", "g1", "u1")

	require.NoError(t, RespondChoices(s, i, nil))
	resp := s.LastResponse()
	assert.Equal(t, discordgo.InteractionApplicationCommandAutocompleteResult, resp.Type)
	assert.NotNil(t, resp.Data.Choices)
	assert.Empty(t, resp.Data.Choices)

	many := make([]*discordgo.ApplicationCommandOptionChoice, 30)
	for n := range many {
		many[n] = &discordgo.ApplicationCommandOptionChoice{Name: "c", Value: n}
	}
	require.NoError(t, RespondChoices(s, i, many))
	assert.Len(t, s.LastResponse().Data.Choices, 25)
}
