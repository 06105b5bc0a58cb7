package commandsync

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/harmonix/internal/core"
)

// Payload builds the application command list for every slash command in
// reg, sorted by name.
func Payload(reg *core.Registry) []*discordgo.ApplicationCommand {
	entries := reg.Commands(core.Slash)
	out := make([]*discordgo.ApplicationCommand, 0, len(entries))
	for _, e := range entries {
		out = append(out, Definition(e.Options))
	}
	return out
}

// Definition translates one command descriptor. Discord requires a
// description, so an empty one falls back to the command name.
func Definition(o core.CommandOptions) *discordgo.ApplicationCommand {
	cmd := &discordgo.ApplicationCommand{
		Name:        o.Name,
		Description: o.Description,
		Type:        discordgo.ChatApplicationCommand,
		Options:     translateOptions(o.Options),
	}
	if cmd.Description == "" {
		cmd.Description = o.Name
	}
	if o.MemberPermission != 0 {
		perm := o.MemberPermission
		cmd.DefaultMemberPermissions = &perm
	}
	return cmd
}

func translateOptions(opts []core.Option) []*discordgo.ApplicationCommandOption {
	if len(opts) == 0 {
		return nil
	}
	out := make([]*discordgo.ApplicationCommandOption, len(opts))
	for i, o := range opts {
		desc := o.Description
		if desc == "" {
			desc = o.Name
		}
		out[i] = &discordgo.ApplicationCommandOption{
			Name:         o.Name,
			Description:  desc,
			Type:         o.Type,
			Required:     o.Required,
			Autocomplete: o.Autocomplete,
			Choices:      o.Choices,
			Options:      translateOptions(o.Options),
		}
	}
	return out
}

// Fingerprint returns a SHA-1 over the stable fields of cmds. Options keep
// their declared order since Discord shows them in that order.
func Fingerprint(cmds []*discordgo.ApplicationCommand) string {
	stable := make([]map[string]any, len(cmds))
	for i, c := range cmds {
		entry := map[string]any{
			"name":        c.Name,
			"description": c.Description,
			"type":        c.Type,
		}
		if c.DefaultMemberPermissions != nil {
			entry["permissions"] = *c.DefaultMemberPermissions
		}
		if len(c.Options) > 0 {
			entry["options"] = normalizeOptions(c.Options)
		}
		stable[i] = entry
	}
	data, _ := json.Marshal(stable)
	return fmt.Sprintf("%x", sha1.Sum(data))
}

func normalizeOptions(opts []*discordgo.ApplicationCommandOption) []map[string]any {
	out := make([]map[string]any, len(opts))
	for i, o := range opts {
		entry := map[string]any{
			"name":         o.Name,
			"description":  o.Description,
			"type":         o.Type,
			"required":     o.Required,
			"autocomplete": o.Autocomplete,
		}
		if len(o.Choices) > 0 {
			choices := make([]map[string]any, len(o.Choices))
			for j, ch := range o.Choices {
				choices[j] = map[string]any{"name": ch.Name, "value": ch.Value}
			}
			entry["choices"] = choices
		}
		if len(o.Options) > 0 {
			entry["options"] = normalizeOptions(o.Options)
		}
		out[i] = entry
	}
	return out
}
