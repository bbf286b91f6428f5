// Package fun provides triggers that respond to ordinary chat.
package fun

import (
	"cmp"
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"gitlab.com/zephyrtronium/pick"

	"github.com/zephyrtronium/hitori/command"
)

// Config configures the fun module.
type Config struct {
	// Trigger is the phrase the bot greets in response to.
	Trigger string `toml:"trigger"`
	// Greetings maps possible greetings to their weights.
	Greetings map[string]int `toml:"greetings"`
}

// Module is the fun module.
type Module struct {
	trigger   string
	greetings *pick.Dist[string]

	// u32 and intN are the random sources for greetings and dice.
	u32  func() uint32
	intN func(int) int
}

// New creates the fun module.
func New(cfg Config) *Module {
	g := cfg.Greetings
	if len(g) == 0 {
		g = map[string]int{"Hello!": 10, "Hi there!": 5, "Hey~": 2}
	}
	t := strings.TrimSpace(cfg.Trigger)
	if t == "" {
		t = "hello"
	}
	cases := pick.FromMap(g)
	// Map order is random. Sort heaviest first so picks are reproducible.
	slices.SortFunc(cases, func(a, b pick.Case[string]) int {
		if c := cmp.Compare(b.W, a.W); c != 0 {
			return c
		}
		return strings.Compare(a.E, b.E)
	})
	return &Module{
		trigger:   t,
		greetings: pick.New(cases),
		u32:       rand.Uint32,
		intN:      rand.IntN,
	}
}

func (*Module) Name() string { return "fun" }

func (*Module) Init(ctx context.Context, robo *command.Robot) error { return nil }

// Dice matches rolls like 2d6. Captures are the count and the number of sides.
var dice = regexp.MustCompile(`^(\d{1,2})d(\d{1,4})$`)

func (m *Module) Commands() []command.Spec {
	return []command.Spec{
		{
			Name:        m.trigger,
			Description: "Say hello back.",
			Usage:       []string{m.trigger},
			Trigger:     command.NoPrefix,
			Func:        m.greet,
		},
		{
			Name:        "dice",
			Description: "Roll dice.",
			Usage:       []string{"<count>d<sides>"},
			Examples:    []string{"2d6", "1d20"},
			Trigger:     command.Regex,
			Pattern:     dice,
			Func:        m.roll,
		},
	}
}

func (m *Module) greet(ctx context.Context, robo *command.Robot, call *command.Invocation) error {
	g := m.greetings.Pick(m.u32())
	if call.Message.Name != "" {
		g = call.Message.Name + ": " + g
	}
	robo.Reply(ctx, call.Message, g)
	return nil
}

func (m *Module) roll(ctx context.Context, robo *command.Robot, call *command.Invocation) error {
	n, _ := strconv.Atoi(call.Arg(0))
	sides, _ := strconv.Atoi(call.Arg(1))
	if n < 1 || sides < 1 {
		robo.Reply(ctx, call.Message, "🎲 That's not a roll I can make.")
		return nil
	}
	rolls := make([]string, n)
	sum := 0
	for i := range rolls {
		r := m.intN(sides) + 1
		sum += r
		rolls[i] = strconv.Itoa(r)
	}
	if n == 1 {
		robo.Reply(ctx, call.Message, fmt.Sprintf("🎲 %dd%d: %d", n, sides, sum))
		return nil
	}
	robo.Reply(ctx, call.Message, fmt.Sprintf("🎲 %dd%d: %s = %d", n, sides, strings.Join(rolls, " + "), sum))
	return nil
}
