package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mahaj/chat-relay/pkg/protocol"
)

func main() {
	serverAddr := flag.String("addr", "localhost:3000", "relay address")
	username := flag.String("user", "user1", "username")
	displayName := flag.String("name", "", "display name (defaults to the username)")
	channel := flag.String("channel", "general", "channel to talk in")
	flag.Parse()

	name := *displayName
	if name == "" {
		name = *username
	}

	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws"}
	slog.Info("connecting", "url", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		slog.Error("dial failed", "err", err)
		os.Exit(1)
	}
	defer c.Close()

	send := func(ev protocol.Inbound) error {
		frame, err := protocol.EncodeInbound(ev)
		if err != nil {
			return err
		}
		return c.WriteMessage(websocket.TextMessage, frame)
	}
	if err := send(protocol.JoinRequest{Username: *username, DisplayName: name}); err != nil {
		slog.Error("join failed", "err", err)
		os.Exit(1)
	}

	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, frame, err := c.ReadMessage()
			if err != nil {
				slog.Info("connection closed", "err", err)
				return
			}
			if line := render(frame); line != "" {
				fmt.Printf("\r%s\n> ", line)
			}
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	quit := make(chan struct{})

	go func() {
		current := *channel
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			ev, next, ok := parseLine(scanner.Text(), current)
			if !ok {
				close(quit)
				return
			}
			current = next
			if ev != nil {
				if err := send(ev); err != nil {
					slog.Error("write failed", "err", err)
					return
				}
			}
			fmt.Print("> ")
		}
	}()

	select {
	case <-done:
		return
	case <-interrupt:
	case <-quit:
	}

	// Cleanly close the connection by sending a close message and then
	// waiting (with timeout) for the server to close the connection.
	err = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		slog.Warn("write close failed", "err", err)
		return
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}

// parseLine turns one line of input into an event. It returns the channel
// to use afterwards and false when the user asked to quit.
func parseLine(text, current string) (protocol.Inbound, string, bool) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return nil, current, true
	case text == "/quit":
		return nil, current, false
	case strings.HasPrefix(text, "/pm "):
		to, content, found := strings.Cut(strings.TrimSpace(strings.TrimPrefix(text, "/pm ")), " ")
		if !found {
			fmt.Println("usage: /pm <user> <message>")
			return nil, current, true
		}
		return protocol.PrivateMessageRequest{To: to, Content: content}, current, true
	case strings.HasPrefix(text, "/join "):
		next := strings.TrimSpace(strings.TrimPrefix(text, "/join "))
		return protocol.HistoryRequest{Channel: next}, next, true
	default:
		return protocol.MessageRequest{Content: text, Channel: current}, current, true
	}
}
