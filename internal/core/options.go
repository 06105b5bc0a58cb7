package core

import (
	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cast"
)

// OptionValue is a slash command option value coerced by its declared type.
// Discord sends integers as JSON numbers and ids as strings, so the raw value
// rarely matches the Go type a handler wants.
type OptionValue struct {
	Name string
	Type discordgo.ApplicationCommandOptionType
	Raw  any
}

// Value returns the option coerced to int64, float64, bool or string
// according to Type.
func (o OptionValue) Value() any {
	switch o.Type {
	case discordgo.ApplicationCommandOptionInteger:
		if v, ok := o.Int(); ok {
			return v
		}
	case discordgo.ApplicationCommandOptionNumber:
		if v, ok := o.Float(); ok {
			return v
		}
	case discordgo.ApplicationCommandOptionBoolean:
		if v, ok := o.Bool(); ok {
			return v
		}
	}
	return o.String()
}

func (o OptionValue) String() string {
	return cast.ToString(o.Raw)
}

func (o OptionValue) Int() (int64, bool) {
	v, err := cast.ToInt64E(o.Raw)
	return v, err == nil
}

func (o OptionValue) Float() (float64, bool) {
	v, err := cast.ToFloat64E(o.Raw)
	return v, err == nil
}

func (o OptionValue) Bool() (bool, bool) {
	v, err := cast.ToBoolE(o.Raw)
	return v, err == nil
}

// leafOptions walks past subcommand and subcommand group wrappers and returns
// the invoked subcommand path and its options.
func leafOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) (path []string, leaf []*discordgo.ApplicationCommandInteractionDataOption) {
	leaf = opts
	for len(leaf) == 1 {
		o := leaf[0]
		if o.Type != discordgo.ApplicationCommandOptionSubCommand &&
			o.Type != discordgo.ApplicationCommandOptionSubCommandGroup {
			break
		}
		path = append(path, o.Name)
		leaf = o.Options
	}
	return path, leaf
}
