package commands

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/harmonix/internal/core"
)

var banOptions = core.CommandOptions{
	Name:             "ban",
	Description:      "Ban a member after confirmation",
	Type:             core.Prefix,
	MemberPermission: discordgo.PermissionBanMembers,
}

var banConfirmOptions = core.ComponentOptions{
	ID:               "ban",
	MemberPermission: discordgo.PermissionBanMembers,
}

const noReason = "No reason given"

var userRef = regexp.MustCompile(`^(?:<@!?(\d+)>|(\d{15,20}))$`)

var ErrCannotBan = errors.New("session cannot ban members")

type banner interface {
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
}

// parseUserRef accepts a mention or a raw snowflake.
func parseUserRef(s string) (string, bool) {
	m := userRef.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return m[1], true
	}
	return m[2], true
}

// Ban asks for confirmation before banning. The reason travels in the
// confirmation embed so the button handler can read it back.
type Ban struct{}

func (b *Ban) Execute(_ context.Context, _ core.Bot, c *core.Context) error {
	if c.GuildID() == "" {
		return c.Reply("Bans only work in servers.")
	}

	arg, _ := c.Arg(0)
	target, ok := parseUserRef(arg)
	if !ok {
		return c.Reply("Usage: `ban @user [reason]`")
	}
	if u := c.User(); u != nil && u.ID == target {
		return c.Reply("You can't ban yourself.")
	}

	reason := strings.Join(c.Args()[1:], " ")
	if reason == "" {
		reason = noReason
	}

	return c.ReplyWith(&discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Confirm ban",
			Description: fmt.Sprintf("Ban <@%s>?", target),
			Color:       core.EmbedColor,
			Fields:      []*discordgo.MessageEmbedField{{Name: "Reason", Value: reason}},
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Ban", Style: discordgo.DangerButton, CustomID: "ban:confirm:" + target},
				discordgo.Button{Label: "Cancel", Style: discordgo.SecondaryButton, CustomID: "ban:cancel"},
			}},
		},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
}

// BanConfirm handles the buttons sent by Ban.
type BanConfirm struct{}

func (b *BanConfirm) Execute(ctx context.Context, bot core.Bot, c *core.Context) error {
	parts := strings.Split(c.CustomID(), ":")
	if len(parts) == 2 && parts[1] == "cancel" {
		return c.UpdateMessage(closed("Ban cancelled."))
	}
	if len(parts) != 3 || parts[1] != "confirm" {
		return fmt.Errorf("unexpected custom id %q", c.CustomID())
	}
	target := parts[2]

	s, ok := bot.Session().(banner)
	if !ok {
		return ErrCannotBan
	}
	if err := s.GuildBanCreateWithReason(c.GuildID(), target, reasonFrom(c.Interaction().Message), 0, discordgo.WithContext(ctx)); err != nil {
		_ = c.ReplyEphemeral("Ban failed. Check that I have the Ban Members permission and a higher role than the target.")
		return fmt.Errorf("ban %s: %w", target, err)
	}

	return c.UpdateMessage(closed(fmt.Sprintf("<@%s> was banned by <@%s>.", target, c.User().ID)))
}

func reasonFrom(m *discordgo.Message) string {
	if m == nil {
		return noReason
	}
	for _, e := range m.Embeds {
		for _, f := range e.Fields {
			if f.Name == "Reason" && f.Value != "" {
				return f.Value
			}
		}
	}
	return noReason
}

func closed(content string) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Content:         content,
		Embeds:          []*discordgo.MessageEmbed{},
		Components:      []discordgo.MessageComponent{},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
}
