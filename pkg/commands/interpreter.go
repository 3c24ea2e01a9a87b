// Package commands turns slash-commands typed into chat into bot replies.
// Interpretation is a pure function of the text, the acting user and the
// online list; the only outside input is the random source.
package commands

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode"

	"github.com/mahaj/chat-relay/pkg/model"
)

const defaultRollSides = 100

// Reply is the single bot answer to a command.
type Reply struct {
	Command string
	Bot     model.Bot
	Content string
}

// Message renders the reply as an unstamped bot message.
func (r Reply) Message() model.Message {
	return model.Message{
		Sender:      r.Bot.Key,
		DisplayName: r.Bot.DisplayName,
		Avatar:      r.Bot.Avatar,
		Content:     r.Content,
		Kind:        model.KindBot,
	}
}

type Interpreter struct {
	persona Persona
	intn    func(n int) int
}

// New returns an interpreter speaking as persona. intn must return a
// uniform value in [0, n); nil uses math/rand/v2.
func New(persona Persona, intn func(n int) int) *Interpreter {
	if intn == nil {
		intn = rand.IntN
	}
	return &Interpreter{persona: persona, intn: intn}
}

func (i *Interpreter) Persona() Persona {
	return i.persona
}

// IsCommand reports whether text should be interpreted.
func IsCommand(text string) bool {
	return strings.HasPrefix(text, "/")
}

// Parse splits a command body on the first run of whitespace. The name is
// returned as typed; the argument is trimmed.
func Parse(text string) (name, arg string) {
	body := strings.TrimPrefix(text, "/")
	idx := strings.IndexFunc(body, unicode.IsSpace)
	if idx < 0 {
		return body, ""
	}
	return body[:idx], strings.TrimSpace(body[idx:])
}

// Interpret answers text if it is a command. Every command, known or not,
// yields exactly one reply.
func (i *Interpreter) Interpret(text string, actor model.User, online []model.User) (Reply, bool) {
	if !IsCommand(text) {
		return Reply{}, false
	}
	typed, arg := Parse(text)
	name := strings.ToLower(typed)
	p := i.persona

	switch name {
	case "help":
		return Reply{Command: name, Bot: p.Helper, Content: p.Help}, true
	case "rules":
		return Reply{Command: name, Bot: p.Helper, Content: p.Rules}, true
	case "roll":
		sides := rollSides(arg)
		return Reply{Command: name, Bot: p.Master, Content: p.Roll(actor, sides, i.intn(sides)+1)}, true
	case "me":
		if arg == "" {
			return Reply{Command: name, Bot: p.Helper, Content: p.MeUsage}, true
		}
		return Reply{Command: name, Bot: p.Master, Content: p.Action(actor, arg)}, true
	case "time":
		return Reply{Command: name, Bot: p.Master, Content: p.Time(i.pick(p.Times))}, true
	case "weather":
		return Reply{Command: name, Bot: p.Master, Content: p.Forecast(i.pick(p.Weather))}, true
	case "online":
		return Reply{Command: name, Bot: p.Helper, Content: p.Online(online)}, true
	default:
		return Reply{Command: typed, Bot: p.Helper, Content: p.Unknown(typed)}, true
	}
}

// Welcome is the greeting sent to a user who just joined.
func (i *Interpreter) Welcome(u model.User) model.Message {
	return model.Message{
		Sender:      model.SystemSender,
		DisplayName: i.persona.Helper.DisplayName,
		Avatar:      i.persona.Helper.Avatar,
		Content:     i.persona.Welcome(u),
		Kind:        model.KindSystem,
	}
}

func (i *Interpreter) pick(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return labels[i.intn(len(labels))]
}

func rollSides(arg string) int {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return defaultRollSides
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 1 {
		return defaultRollSides
	}
	return n
}
