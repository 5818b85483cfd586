package tui

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Event is one decoded frame of the server's query stream.
type Event struct {
	Kind     string // metadata, chunk, metadata_final, done, error
	Text     string
	Mode     string
	Matching int
	Filters  []string
	Err      error
}

// Client talks to a running finrag server.
type Client struct {
	baseURL string
	userID  string
	httpc   *http.Client
}

// NewClient creates an API client for the given server and user.
func NewClient(baseURL, userID string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		// Streaming responses stay open; rely on context/server timeouts.
		httpc: &http.Client{},
	}
}

// Ingested reports whether the user has a corpus on the server.
func (c *Client) Ingested() (bool, int, error) {
	resp, err := c.httpc.Get(fmt.Sprintf("%s/status?user_id=%s", c.baseURL, c.userID))
	if err != nil {
		return false, 0, err
	}
	defer resp.Body.Close()
	var body struct {
		Ingested bool `json:"ingested"`
		Count    int  `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, 0, err
	}
	return body.Ingested, body.Count, nil
}

// Stream opens a streaming query and delivers decoded events on the
// returned channel until the stream ends.
func (c *Client) Stream(prompt string) (<-chan Event, error) {
	payload, _ := json.Marshal(map[string]any{
		"user_id": c.userID,
		"prompt":  prompt,
	})
	resp, err := c.httpc.Post(c.baseURL+"/query/stream", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		var eventName string
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			switch {
			case strings.HasPrefix(line, "event:"):
				eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
				ev := decodeEvent(eventName, data)
				out <- ev
				if ev.Kind == "done" || ev.Kind == "error" {
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			out <- Event{Kind: "error", Err: err}
		}
	}()
	return out, nil
}

func decodeEvent(name, data string) Event {
	ev := Event{Kind: name}
	switch name {
	case "metadata":
		var m struct {
			Mode     string   `json:"mode"`
			Matching int      `json:"matching_transactions_count"`
			Filters  []string `json:"filters_applied"`
		}
		if err := json.Unmarshal([]byte(data), &m); err == nil {
			ev.Mode, ev.Matching, ev.Filters = m.Mode, m.Matching, m.Filters
		}
	case "chunk":
		var m struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(data), &m); err == nil {
			ev.Text = m.Text
		}
	case "error":
		var m struct {
			Kind    string `json:"error_kind"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(data), &m); err == nil {
			ev.Err = fmt.Errorf("%s: %s", m.Kind, m.Message)
		}
	}
	return ev
}
