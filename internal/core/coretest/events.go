package coretest

import (
	"github.com/bwmarrin/discordgo"
)

// Slash builds a chat input command interaction in guild/channel by userID.
// perms becomes the member's resolved permissions.
func Slash(id, name, guildID, channelID, userID string, perms int64, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	i := base(id, discordgo.InteractionApplicationCommand, guildID, channelID, userID, perms)
	i.Data = discordgo.ApplicationCommandInteractionData{
		ID:          "cmd-" + name,
		Name:        name,
		CommandType: discordgo.ChatApplicationCommand,
		Options:     opts,
	}
	return i
}

// Autocomplete builds an autocomplete interaction for command name.
func Autocomplete(id, name, guildID, userID string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	i := base(id, discordgo.InteractionApplicationCommandAutocomplete, guildID, "c1", userID, 0)
	i.Data = discordgo.ApplicationCommandInteractionData{
		Name:        name,
		CommandType: discordgo.ChatApplicationCommand,
		Options:     opts,
	}
	return i
}

// Component builds a message component interaction.
func Component(id, customID, guildID, userID string, perms int64, kind discordgo.ComponentType, values ...string) *discordgo.InteractionCreate {
	i := base(id, discordgo.InteractionMessageComponent, guildID, "c1", userID, perms)
	i.Data = discordgo.MessageComponentInteractionData{
		CustomID:      customID,
		ComponentType: kind,
		Values:        values,
	}
	return i
}

// Message builds a message create event.
func Message(id, content, guildID, channelID, userID string, bot bool) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        id,
		Content:   content,
		GuildID:   guildID,
		ChannelID: channelID,
		Author:    &discordgo.User{ID: userID, Username: userID, Bot: bot},
	}}
}

// StringOption builds a string option value.
func StringOption(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

// NumberOption builds an option carrying a JSON number, as Discord sends
// integers and numbers.
func NumberOption(name string, t discordgo.ApplicationCommandOptionType, value float64) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: t, Value: value}
}

func base(id string, t discordgo.InteractionType, guildID, channelID, userID string, perms int64) *discordgo.InteractionCreate {
	user := &discordgo.User{ID: userID, Username: userID}
	i := &discordgo.Interaction{
		ID:        id,
		Type:      t,
		GuildID:   guildID,
		ChannelID: channelID,
	}
	if guildID != "" {
		i.Member = &discordgo.Member{User: user, GuildID: guildID, Permissions: perms}
	} else {
		i.User = user
	}
	return &discordgo.InteractionCreate{Interaction: i}
}
