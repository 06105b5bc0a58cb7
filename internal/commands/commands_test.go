package commands

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/harmonix/internal/cooldown"
	"github.com/keshon/harmonix/internal/core"
	"github.com/keshon/harmonix/internal/core/coretest"
	"github.com/keshon/harmonix/internal/dispatch"
)

const target = "123456789012345678"

type ban struct{ guildID, userID, reason string }

// session adds the calls some units need on top of the recording session.
type session struct {
	*coretest.Session

	mu     sync.Mutex
	bans   []ban
	banErr error
}

func (s *session) GuildBanCreateWithReason(guildID, userID, reason string, _ int, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.banErr != nil {
		return s.banErr
	}
	s.bans = append(s.bans, ban{guildID, userID, reason})
	return nil
}

type fakeBot struct {
	session core.Session
	reg     *core.Registry
}

func (b *fakeBot) Session() core.Session    { return b.session }
func (b *fakeBot) Registry() *core.Registry { return b.reg }
func (b *fakeBot) Logger() zerolog.Logger   { return zerolog.Nop() }

func setup(t *testing.T) (*dispatch.Dispatcher, *session) {
	t.Helper()
	s := &session{Session: coretest.NewSession()}
	bot := &fakeBot{session: s, reg: core.NewRegistry(zerolog.Nop())}
	require.Empty(t, core.NewLoader(bot.reg, zerolog.Nop()).Load(Units()))
	return dispatch.New(bot, cooldown.New(), dispatch.WithPrefix("!")), s
}

func TestUnitsLoad(t *testing.T) {
	reg := core.NewRegistry(zerolog.Nop())
	warnings := core.NewLoader(reg, zerolog.Nop()).Load(Units())
	require.Empty(t, warnings)

	names := func(kind core.CommandType) []string {
		var out []string
		for _, e := range reg.Commands(kind) {
			out = append(out, e.Options.Name)
		}
		return out
	}
	assert.Equal(t, []string{"echo", "ping", "roll"}, names(core.Slash))
	assert.Equal(t, []string{"ban", "echo", "roll"}, names(core.Prefix))

	_, ok := reg.Component("ban")
	assert.True(t, ok)
	assert.Len(t, reg.Events("READY"), 1)
}

func TestPing(t *testing.T) {
	d, s := setup(t)

	out := d.HandleInteraction(context.Background(), coretest.Slash("i1", "ping", "g1", "c1", "u1", 0))

	assert.Equal(t, dispatch.Executed, out)
	assert.Equal(t, "🏓 Pong!", s.LastResponse().Data.Content)
}

type latencySession struct{ *session }

func (l latencySession) HeartbeatLatency() time.Duration { return 42 * time.Millisecond }

func TestPingReportsLatency(t *testing.T) {
	s := &session{Session: coretest.NewSession()}
	bot := &fakeBot{session: latencySession{s}}
	c := core.NewSlashContext(s, coretest.Slash("i1", "ping", "g1", "c1", "u1", 0))

	require.NoError(t, (&Ping{}).Execute(context.Background(), bot, c))
	assert.Equal(t, "🏓 Pong! Response time: `42ms`", s.LastResponse().Data.Content)
}

func TestEchoSlash(t *testing.T) {
	d, s := setup(t)

	d.HandleInteraction(context.Background(), coretest.Slash("i1", "echo", "g1", "c1", "u1", 0, coretest.StringOption("text", "hello there")))

	resp := s.LastResponse()
	require.NotNil(t, resp)
	assert.Equal(t, "hello there", resp.Data.Content)
	assert.NotNil(t, resp.Data.AllowedMentions)
}

func TestEchoPrefix(t *testing.T) {
	d, s := setup(t)
	ctx := context.Background()

	d.HandleMessage(ctx, coretest.Message("m1", "!echo hi   there", "g1", "c1", "u1", false))
	d.HandleMessage(ctx, coretest.Message("m2", "!echo", "g1", "c1", "u2", false))

	sent := s.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "hi there", sent[0].Content)
	assert.Equal(t, "m1", sent[0].Reference.MessageID)
	assert.Equal(t, "Nothing to echo.", sent[1].Content)
}

func TestRollEvaluate(t *testing.T) {
	highest := &Roll{Intn: func(n int) int { return n - 1 }}
	lowest := &Roll{Intn: func(int) int { return 0 }}

	tests := []struct {
		formula string
		roller  *Roll
		total   int
		wantErr error
	}{
		{"2d6+3", highest, 15, nil},
		{"2d6 + 3", lowest, 5, nil},
		{"1d20*2", highest, 40, nil},
		{"10-2*3", lowest, 4, nil},
		{"d8", highest, 8, nil},
		{"7/2", lowest, 3, nil},
		{"5/0", lowest, 0, ErrDivideByZero},
		{"*3", lowest, 0, ErrDanglingOp},
		{"abc", lowest, 0, ErrEmptyFormula},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			res, err := tt.roller.Evaluate(tt.formula)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.total, res.Total)
		})
	}
}

func TestRollRejectsBadDice(t *testing.T) {
	for _, f := range []string{"0d6", "1d1", "101d6", "1d1001"} {
		_, err := (&Roll{}).Evaluate(f)
		assert.Error(t, err, f)
	}
}

func TestRollCommandAndCooldown(t *testing.T) {
	d, s := setup(t)
	ctx := context.Background()

	assert.Equal(t, dispatch.Executed, d.HandleMessage(ctx, coretest.Message("m1", "!roll 1d6", "g1", "c1", "u1", false)))
	assert.Equal(t, dispatch.Throttled, d.HandleMessage(ctx, coretest.Message("m2", "!roll 1d6", "g1", "c1", "u1", false)))

	sent := s.SentMessages()
	require.Len(t, sent, 2)
	require.Len(t, sent[0].Embeds, 1)
	assert.Equal(t, "🎲 Dice Roll", sent[0].Embeds[0].Title)
	assert.Contains(t, sent[1].Content, "dice are still rolling")
}

func TestRollAutocomplete(t *testing.T) {
	d, s := setup(t)
	typed := &discordgo.ApplicationCommandInteractionDataOption{
		Name: "formula", Type: discordgo.ApplicationCommandOptionString, Value: "1d2", Focused: true,
	}

	out := d.HandleInteraction(context.Background(), coretest.Autocomplete("i1", "roll", "g1", "u1", typed))

	require.Equal(t, dispatch.Executed, out)
	var names []string
	for _, c := range s.LastResponse().Data.Choices {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"1d2", "1d20", "1d20+5"}, names)
}

func TestParseUserRef(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"<@" + target + ">", target, true},
		{"<@!" + target + ">", target, true},
		{target, target, true},
		{"@someone", "", false},
		{"12", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := parseUserRef(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestBanAsksForConfirmation(t *testing.T) {
	d, s := setup(t)
	s.Permissions["u1/c1"] = discordgo.PermissionBanMembers

	out := d.HandleMessage(context.Background(), coretest.Message("m1", "!ban <@"+target+"> spamming links", "g1", "c1", "u1", false))

	require.Equal(t, dispatch.Executed, out)
	sent := s.SentMessages()
	require.Len(t, sent, 1)
	require.Len(t, sent[0].Embeds, 1)
	assert.Equal(t, "spamming links", sent[0].Embeds[0].Fields[0].Value)

	require.Len(t, sent[0].Components, 1)
	row, ok := sent[0].Components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	confirm := row.Components[0].(discordgo.Button)
	assert.Equal(t, "ban:confirm:"+target, confirm.CustomID)
	assert.Empty(t, s.bans, "nothing is banned before confirmation")
}

func TestBanUsageErrors(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{"!ban", "Usage: `ban @user [reason]`"},
		{"!ban someone", "Usage: `ban @user [reason]`"},
		{"!ban <@u1>", "Usage: `ban @user [reason]`"},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			d, s := setup(t)
			s.Permissions["u1/c1"] = discordgo.PermissionBanMembers

			d.HandleMessage(context.Background(), coretest.Message("m1", tt.content, "g1", "c1", "u1", false))

			sent := s.SentMessages()
			require.Len(t, sent, 1)
			assert.Equal(t, tt.want, sent[0].Content)
		})
	}
}

func TestBanSelf(t *testing.T) {
	d, s := setup(t)
	s.Permissions[target+"/c1"] = discordgo.PermissionAdministrator

	d.HandleMessage(context.Background(), coretest.Message("m1", "!ban "+target, "g1", "c1", target, false))

	sent := s.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "You can't ban yourself.", sent[0].Content)
}

func confirmation(customID string, perms int64) *discordgo.InteractionCreate {
	i := coretest.Component("i1", customID, "g1", "mod", perms, discordgo.ButtonComponent)
	i.Message = &discordgo.Message{Embeds: []*discordgo.MessageEmbed{{
		Fields: []*discordgo.MessageEmbedField{{Name: "Reason", Value: "spamming links"}},
	}}}
	return i
}

func TestBanConfirmBans(t *testing.T) {
	d, s := setup(t)

	out := d.HandleInteraction(context.Background(), confirmation("ban:confirm:"+target, discordgo.PermissionBanMembers))

	require.Equal(t, dispatch.Executed, out)
	assert.Equal(t, []ban{{"g1", target, "spamming links"}}, s.bans)
	resp := s.LastResponse()
	assert.Equal(t, discordgo.InteractionResponseUpdateMessage, resp.Type)
	assert.Contains(t, resp.Data.Content, "was banned by <@mod>")
	assert.Empty(t, resp.Data.Components)
}

func TestBanConfirmCancel(t *testing.T) {
	d, s := setup(t)

	out := d.HandleInteraction(context.Background(), confirmation("ban:cancel", discordgo.PermissionBanMembers))

	require.Equal(t, dispatch.Executed, out)
	assert.Empty(t, s.bans)
	assert.Equal(t, "Ban cancelled.", s.LastResponse().Data.Content)
}

func TestBanConfirmNeedsPermission(t *testing.T) {
	d, s := setup(t)

	out := d.HandleInteraction(context.Background(), confirmation("ban:confirm:"+target, discordgo.PermissionSendMessages))

	assert.Equal(t, dispatch.Denied, out)
	assert.Empty(t, s.bans)
}

func TestBanConfirmFailure(t *testing.T) {
	d, s := setup(t)
	s.banErr = errors.New("missing access")

	out := d.HandleInteraction(context.Background(), confirmation("ban:confirm:"+target, discordgo.PermissionBanMembers))

	assert.Equal(t, dispatch.Failed, out)
	resp := s.LastResponse()
	require.NotNil(t, resp)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)
	assert.Contains(t, resp.Data.Content, "Ban failed")
}

func TestReadyEvent(t *testing.T) {
	bot := &fakeBot{reg: core.NewRegistry(zerolog.Nop())}

	assert.NoError(t, (&Ready{}).Execute(context.Background(), bot, &discordgo.Ready{SessionID: "s1", User: &discordgo.User{Username: "harmonix"}}))
	assert.Error(t, (&Ready{}).Execute(context.Background(), bot, "not a ready payload"))
}
