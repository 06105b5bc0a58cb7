package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// CommandType selects which invocation tables a command is registered in.
type CommandType string

const (
	Slash  CommandType = "slash"
	Prefix CommandType = "prefix"
	Both   CommandType = "both"
)

// Kinds expands a command type into the registry tables it occupies.
// The zero value means Slash.
func (t CommandType) Kinds() []CommandType {
	switch t {
	case "", Slash:
		return []CommandType{Slash}
	case Prefix:
		return []CommandType{Prefix}
	case Both:
		return []CommandType{Slash, Prefix}
	default:
		return nil
	}
}

// EventKey names a gateway event type as delivered by discordgo, e.g. "READY".
type EventKey string

// Option describes one slash command option.
type Option struct {
	Name         string
	Description  string
	Type         discordgo.ApplicationCommandOptionType
	Required     bool
	Autocomplete bool
	Choices      []*discordgo.ApplicationCommandOptionChoice
	// Options holds nested options for subcommands and subcommand groups.
	Options []Option
}

// CommandOptions describes how a command is invoked.
type CommandOptions struct {
	Name        string
	Description string
	Type        CommandType
	// UserCooldown and GuildCooldown are in seconds; zero disables the scope.
	// A nil UserCooldown means DefaultUserCooldown.
	UserCooldown  *int
	GuildCooldown int
	// MemberPermission is a discordgo permission bitfield; zero means unrestricted.
	MemberPermission int64
	Options          []Option
}

// DefaultUserCooldown is the user cooldown, in seconds, of commands that do
// not set one.
const DefaultUserCooldown = 3

// CooldownSeconds returns a pointer for CommandOptions.UserCooldown.
func CooldownSeconds(n int) *int { return &n }

// UserCooldownDuration returns the user cooldown as a duration.
func (o CommandOptions) UserCooldownDuration() time.Duration {
	if o.UserCooldown == nil {
		return DefaultUserCooldown * time.Second
	}
	return time.Duration(*o.UserCooldown) * time.Second
}

// GuildCooldownDuration returns the guild cooldown as a duration.
func (o CommandOptions) GuildCooldownDuration() time.Duration {
	return time.Duration(o.GuildCooldown) * time.Second
}

// ComponentOptions describes a message component handler.
type ComponentOptions struct {
	ID               string
	MemberPermission int64
}

var (
	ErrMissingName      = errors.New("missing name")
	ErrMissingID        = errors.New("missing id")
	ErrUnknownType      = errors.New("unknown command type")
	ErrNegativeCooldown = errors.New("negative cooldown")
)

// Validate checks the descriptor fields the registry depends on.
func (o *CommandOptions) Validate() error {
	if o.Name == "" {
		return ErrMissingName
	}
	if o.Type.Kinds() == nil {
		return fmt.Errorf("%w %q", ErrUnknownType, o.Type)
	}
	if (o.UserCooldown != nil && *o.UserCooldown < 0) || o.GuildCooldown < 0 {
		return ErrNegativeCooldown
	}
	return nil
}

// Validate checks the descriptor fields the registry depends on.
func (o *ComponentOptions) Validate() error {
	if o.ID == "" {
		return ErrMissingID
	}
	return nil
}
