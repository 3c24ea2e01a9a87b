package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
)

type LoginResponse struct {
	Token string `json:"token"`
}

func main() {
	apiAddr := flag.String("api", "http://localhost:3000", "relay address")
	channel := flag.String("channel", "general", "channel to fetch history for")
	flag.Parse()

	for _, path := range []string{"/api/health", "/api/channels", "/api/online-users"} {
		body, status, err := get(*apiAddr+path, "")
		if err != nil {
			fail("request failed", "path", path, "err", err)
		}
		fmt.Printf("%s %d: %s\n", path, status, body)
	}

	// Login only works when the relay has a jwt secret; history is public
	// otherwise.
	var token string
	reqBody, _ := json.Marshal(map[string]string{"username": "verify_api", "display_name": "Verifier"})
	resp, err := http.Post(*apiAddr+"/api/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		fail("login request failed", "err", err)
	}
	if resp.StatusCode == http.StatusOK {
		var loginResp LoginResponse
		if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
			fail("failed to decode login response", "err", err)
		}
		token = loginResp.Token
		slog.Info("logged in", "token_prefix", token[:min(10, len(token))])
	} else {
		slog.Info("login unavailable, fetching history anonymously", "status", resp.StatusCode)
	}
	resp.Body.Close()

	body, status, err := get(*apiAddr+"/api/messages/"+*channel, token)
	if err != nil {
		fail("history request failed", "err", err)
	}
	fmt.Printf("/api/messages/%s %d: %s\n", *channel, status, body)
}

func get(url, token string) ([]byte, int, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	if token != "" {
		req.Header.Add("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return body, resp.StatusCode, err
}

func fail(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}
