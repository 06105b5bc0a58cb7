package commands

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/harmonix/internal/core"
)

var rollOptions = core.CommandOptions{
	Name:         "roll",
	Description:  "Roll dice with formulas like `2d6+1d4*2`",
	Type:         core.Both,
	UserCooldown: core.CooldownSeconds(3),
	Options: []core.Option{
		{
			Name:         "formula",
			Description:  "Supports `2d6+1d4*2-3` and similar math",
			Type:         discordgo.ApplicationCommandOptionString,
			Required:     true,
			Autocomplete: true,
		},
	},
}

var (
	tokenRegex = regexp.MustCompile(`(?i)(\d*d\d+|\d+|[+\-*/])`)
	diceRegex  = regexp.MustCompile(`(?i)^(\d*)d(\d+)$`)
	validOps   = map[string]bool{"+": true, "-": true, "*": true, "/": true}

	presets = []string{"1d20", "1d6", "2d6", "1d100", "4d6", "1d20+5", "2d20", "3d8+2", "1d12", "1d4"}
)

var (
	ErrEmptyFormula = errors.New("can't parse formula")
	ErrDivideByZero = errors.New("can't divide by zero")
	ErrDanglingOp   = errors.New("can't multiply or divide by nothing")
)

type term struct {
	value int
	desc  string
	op    string
}

// RollResult is an evaluated formula.
type RollResult struct {
	Formula string
	Detail  string
	Total   int
}

// Roll evaluates dice formulas. Multiplication and division bind to the
// preceding term.
type Roll struct {
	// Intn defaults to math/rand.Intn.
	Intn func(n int) int
}

func (r *Roll) Execute(_ context.Context, _ core.Bot, c *core.Context) error {
	var formula string
	if opt, ok := c.Option("formula"); ok {
		formula = opt.String()
	} else {
		formula = strings.Join(c.Args(), "")
	}

	res, err := r.Evaluate(formula)
	if err != nil {
		return c.ReplyEphemeral(fmt.Sprintf("%v. Try something like `2d6+1d4*2-3`", err))
	}

	return c.ReplyWith(&discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "🎲 Dice Roll",
			Description: fmt.Sprintf("**Input**:\t`%s`\n**Calculation**:\t%s\n**Result**:\t**%d**", res.Formula, res.Detail, res.Total),
			Color:       core.EmbedColor,
		}},
	})
}

// Cooldown replaces the default throttle notice.
func (r *Roll) Cooldown(_ context.Context, _ core.Bot, _ *core.Context, expiresAt time.Time) (*discordgo.InteractionResponseData, error) {
	return &discordgo.InteractionResponseData{
		Content: fmt.Sprintf("🎲 The dice are still rolling. Try again <t:%d:R>.", expiresAt.Unix()),
		Flags:   discordgo.MessageFlagsEphemeral,
	}, nil
}

// AutoComplete suggests preset formulas starting with what was typed.
func (r *Roll) AutoComplete(_ context.Context, _ core.Bot, i *discordgo.InteractionCreate, choices []*discordgo.ApplicationCommandOptionChoice) ([]*discordgo.ApplicationCommandOptionChoice, error) {
	typed := ""
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Focused && opt.Type == discordgo.ApplicationCommandOptionString {
			typed = strings.ToLower(strings.TrimSpace(opt.StringValue()))
		}
	}

	if typed != "" {
		if _, err := r.Evaluate(typed); err == nil {
			choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: typed, Value: typed})
		}
	}
	for _, p := range presets {
		if p != typed && strings.HasPrefix(p, typed) {
			choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: p, Value: p})
		}
	}
	return choices, nil
}

// Evaluate parses and rolls formula.
func (r *Roll) Evaluate(formula string) (RollResult, error) {
	formula = strings.ReplaceAll(formula, " ", "")
	tokens := tokenRegex.FindAllString(formula, -1)
	if len(tokens) == 0 {
		return RollResult{}, ErrEmptyFormula
	}

	var terms []term
	op := "+"
	for _, token := range tokens {
		if validOps[token] {
			op = token
			continue
		}
		val, desc, err := r.evaluateToken(token)
		if err != nil {
			return RollResult{}, fmt.Errorf("failed to evaluate `%s`: %w", token, err)
		}
		terms = append(terms, term{value: val, desc: desc, op: op})
		op = "+"
	}

	var merged []term
	for _, t := range terms {
		if t.op != "*" && t.op != "/" {
			merged = append(merged, t)
			continue
		}
		if len(merged) == 0 {
			return RollResult{}, ErrDanglingOp
		}
		prev := merged[len(merged)-1]
		if t.op == "*" {
			prev.value *= t.value
		} else {
			if t.value == 0 {
				return RollResult{}, ErrDivideByZero
			}
			prev.value /= t.value
		}
		prev.desc = fmt.Sprintf("%s %s %s", prev.desc, t.op, t.desc)
		merged[len(merged)-1] = prev
	}

	res := RollResult{Formula: formula}
	var details []string
	for _, t := range merged {
		if len(details) > 0 {
			details = append(details, " "+t.op+" ")
		}
		details = append(details, t.desc)
		if t.op == "-" {
			res.Total -= t.value
		} else {
			res.Total += t.value
		}
	}
	res.Detail = strings.Join(details, "")
	return res, nil
}

func (r *Roll) evaluateToken(token string) (int, string, error) {
	if m := diceRegex.FindStringSubmatch(token); m != nil {
		count := 1
		if m[1] != "" {
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 {
				return 0, "", errors.New("invalid dice count")
			}
			count = n
		}
		sides, err := strconv.Atoi(m[2])
		if err != nil || sides < 2 {
			return 0, "", errors.New("invalid dice sides")
		}
		if count > 100 || sides > 1000 {
			return 0, "", errors.New("too big, max 100 dice and 1000 sides")
		}

		intn := r.Intn
		if intn == nil {
			intn = rand.Intn
		}
		sum := 0
		rolls := make([]string, count)
		for i := range rolls {
			n := intn(sides) + 1
			sum += n
			rolls[i] = strconv.Itoa(n)
		}
		return sum, fmt.Sprintf("`%s` [%s]", token, strings.Join(rolls, ", ")), nil
	}

	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, "", errors.New("not a number or dice")
	}
	return n, fmt.Sprintf("`%d`", n), nil
}
