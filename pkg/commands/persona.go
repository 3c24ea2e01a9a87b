package commands

import (
	"fmt"
	"strings"

	"github.com/mahaj/chat-relay/pkg/model"
)

// Persona is the wording and the bot voices of one deployment. The command
// table is the same for every persona.
type Persona struct {
	Name string
	// Helper answers help, rules, online, usage errors and unknown commands.
	Helper model.Bot
	// Master answers roll, me, time and weather.
	Master model.Bot

	Help    string
	Rules   string
	Times   []string
	Weather []string

	Welcome  func(u model.User) string
	Roll     func(u model.User, sides, result int) string
	Action   func(u model.User, action string) string
	MeUsage  string
	Time     func(label string) string
	Forecast func(label string) string
	Online   func(users []model.User) string
	Unknown  func(command string) string
}

func displayNames(users []model.User) string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.DisplayName)
	}
	return strings.Join(names, ", ")
}

var Chat = Persona{
	Name:   "chat",
	Helper: model.Bot{Key: "rp_helper", DisplayName: "System Helper", Avatar: "🤖"},
	Master: model.Bot{Key: "game_master", DisplayName: "Game Master", Avatar: "🎮"},
	Help: strings.Join([]string{
		"📋 **Available commands:**",
		"/help - show this message",
		"/rules - server roleplay rules",
		"/roll [number] - roll a die (100 by default)",
		"/me [action] - describe an action",
		"/time - current in-game time",
		"/weather - current weather",
		"/online - who is online",
	}, "\n"),
	Rules: strings.Join([]string{
		"📜 **Server rules:**",
		"1. 🎭 Respect other players and their roleplay",
		"2. 📖 Follow the server lore",
		"3. 🚫 No metagaming",
		"4. 💬 Use /me to describe actions",
		"5. ⚡ The admins are always right!",
	}, "\n"),
	Times:   []string{"🌅 Morning", "☀️ Day", "🌇 Evening", "🌙 Night"},
	Weather: []string{"☀️ Sunny", "🌧️ Rainy", "🌫️ Foggy", "☁️ Cloudy", "💨 Windy"},
	Welcome: func(u model.User) string {
		return fmt.Sprintf("Welcome to the chat, %s! Type /help for the list of commands.", u.DisplayName)
	},
	Roll: func(u model.User, sides, result int) string {
		return fmt.Sprintf("🎲 **%s** rolls a D%d: **%d**!", u.DisplayName, sides, result)
	},
	Action: func(u model.User, action string) string {
		return fmt.Sprintf("* **%s** %s", u.DisplayName, action)
	},
	MeUsage:  "❌ Usage: /me [action]",
	Time:     func(label string) string { return "🕒 Server time: " + label },
	Forecast: func(label string) string { return "🌤️ Weather: " + label },
	Online: func(users []model.User) string {
		return fmt.Sprintf("👥 **Players online:** %d\n%s", len(users), displayNames(users))
	},
	Unknown: func(command string) string {
		return fmt.Sprintf("❌ Unknown command: **/%s**. Type **/help** for the list of commands.", command)
	},
}

var Military = Persona{
	Name:   "military",
	Helper: model.Bot{Key: "hq", DisplayName: "Headquarters", Avatar: "📡"},
	Master: model.Bot{Key: "drill_sergeant", DisplayName: "Drill Sergeant", Avatar: "🎖️"},
	Help: strings.Join([]string{
		"📋 **Standing orders:**",
		"/help - list orders",
		"/rules - rules of engagement",
		"/roll [number] - draw lots (100 by default)",
		"/me [action] - report an action",
		"/time - current watch",
		"/weather - field conditions",
		"/online - roll call",
	}, "\n"),
	Rules: strings.Join([]string{
		"📜 **Rules of engagement:**",
		"1. Respect the chain of command",
		"2. Stay in character on duty channels",
		"3. No intel from outside the operation",
		"4. Report actions with /me",
		"5. Command has the final word",
	}, "\n"),
	Times:   []string{"🌅 Morning watch", "☀️ Day watch", "🌇 Evening watch", "🌙 Night watch"},
	Weather: []string{"☀️ Clear skies", "🌧️ Heavy rain", "🌫️ Low visibility", "☁️ Overcast", "💨 Strong winds"},
	Welcome: func(u model.User) string {
		return fmt.Sprintf("Welcome aboard, %s. Report /help for standing orders.", u.DisplayName)
	},
	Roll: func(u model.User, sides, result int) string {
		return fmt.Sprintf("🎲 **%s** draws lots D%d: **%d**", u.DisplayName, sides, result)
	},
	Action: func(u model.User, action string) string {
		return fmt.Sprintf("* **%s** %s", u.DisplayName, action)
	},
	MeUsage:  "❌ Order format: /me [action]",
	Time:     func(label string) string { return "🕒 Current watch: " + label },
	Forecast: func(label string) string { return "🌤️ Field conditions: " + label },
	Online: func(users []model.User) string {
		return fmt.Sprintf("👥 **Roll call:** %d present\n%s", len(users), displayNames(users))
	},
	Unknown: func(command string) string {
		return fmt.Sprintf("❌ Unknown order: **/%s**. Report **/help** for standing orders.", command)
	},
}

// PersonaByName returns the persona for name, defaulting to Chat.
func PersonaByName(name string) Persona {
	if strings.EqualFold(name, Military.Name) {
		return Military
	}
	return Chat
}
