// Package n8n talks to the external workflow engine that hosts agents.
package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mudler/xlog"
)

const (
	DefaultChatTimeout  = 90 * time.Second
	DefaultTrainTimeout = 120 * time.Second

	// EmptyReply is shown when the agent answers successfully with no body.
	EmptyReply = "(the agent returned no content)"

	maxBodyBytes = 4 << 20
)

// Credentials authenticate every call with HTTP Basic auth.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

// Result is the outcome of one relay call. Failures are described in Error
// and, for chat, in a readable Text; they are never returned as Go errors.
type Result struct {
	Text       string
	Success    bool
	StatusCode int
	Error      string
	Raw        any
}

// File is one upload forwarded to a training workflow.
type File struct {
	Name   string
	Reader io.Reader
}

type Client struct {
	httpClient   *http.Client
	ChatTimeout  time.Duration
	TrainTimeout time.Duration
}

// NewClient wraps httpClient; nil uses a fresh client. Per-call deadlines come from the timeouts.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		httpClient:   httpClient,
		ChatTimeout:  DefaultChatTimeout,
		TrainTimeout: DefaultTrainTimeout,
	}
}

type chatPayload struct {
	SessionID string `json:"sessionId"`
	ChatInput string `json:"chatInput"`
}

// Chat sends one message for sessionID and extracts the reply text.
func (c *Client) Chat(ctx context.Context, chatURL string, creds Credentials, sessionID, message string) Result {
	if strings.TrimSpace(chatURL) == "" {
		return Result{Text: "Error: no chat URL configured for this agent.", Error: "chat URL missing"}
	}
	if !creds.Complete() {
		return Result{Text: "N8N configuration error: incomplete N8N credentials.", Error: "incomplete N8N credentials"}
	}

	body, err := json.Marshal(chatPayload{SessionID: sessionID, ChatInput: message})
	if err != nil {
		return Result{Text: fmt.Sprintf("Error contacting the agent (%v)", err), Error: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, c.ChatTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, chatURL, bytes.NewReader(body))
	if err != nil {
		return Result{Text: fmt.Sprintf("Error contacting the agent (invalid chat URL %s)", chatURL), Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(creds.Username, creds.Password)

	xlog.Debug("N8N chat request", "url", chatURL, "session", sessionID)
	data, status, detail := c.do(req, c.ChatTimeout)
	if detail != "" {
		xlog.Error("N8N chat failed", "url", chatURL, "status", status, "detail", detail)
		return Result{Text: fmt.Sprintf("Error contacting the agent (%s)", detail), StatusCode: status, Error: detail}
	}

	if data == nil {
		return Result{Text: EmptyReply, Success: true, StatusCode: status}
	}
	if text, ok := ExtractReply(data); ok {
		return Result{Text: text, Success: true, StatusCode: status, Raw: data}
	}
	xlog.Warn("Could not extract chat reply", "url", chatURL)
	return Result{
		Text:       "Unexpected response: " + truncate(stringify(data), 150) + "...",
		StatusCode: status,
		Error:      "unexpected response shape",
		Raw:        data,
	}
}

// Train forwards files and the processing method to the agent's details workflow.
func (c *Client) Train(ctx context.Context, detailsURL string, creds Credentials, agentID, method string, files []File) Result {
	if strings.TrimSpace(detailsURL) == "" {
		return Result{Text: "No training URL configured for this agent.", Error: "details URL missing"}
	}
	if !creds.Complete() {
		return Result{Text: "N8N configuration error: incomplete N8N credentials.", Error: "incomplete N8N credentials"}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("agent_id", agentID)
	_ = mw.WriteField("processing_method", method)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return Result{Text: fmt.Sprintf("Could not prepare %s", f.Name), Error: err.Error()}
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return Result{Text: fmt.Sprintf("Could not read %s", f.Name), Error: err.Error()}
		}
	}
	if err := mw.Close(); err != nil {
		return Result{Text: "Could not prepare the upload", Error: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, c.TrainTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, detailsURL, &buf)
	if err != nil {
		return Result{Text: fmt.Sprintf("Invalid training URL %s", detailsURL), Error: err.Error()}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(creds.Username, creds.Password)

	xlog.Info("N8N training request", "url", detailsURL, "agent", agentID, "files", len(files))
	data, status, detail := c.do(req, c.TrainTimeout)
	if detail != "" {
		xlog.Error("N8N training failed", "url", detailsURL, "status", status, "detail", detail)
		return Result{Text: fmt.Sprintf("Training request failed (%s)", detail), StatusCode: status, Error: detail}
	}
	text := "Training request accepted."
	if data != nil {
		if reply, ok := ExtractReply(data); ok {
			text = reply
		}
	}
	return Result{Text: text, Success: true, StatusCode: status, Raw: data}
}

// do executes req and decodes the body. A non-empty detail describes a failure.
// data is nil for 204 or an empty success body, and a string for non-JSON success bodies.
func (c *Client) do(req *http.Request, timeout time.Duration) (data any, status int, detail string) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			return nil, 0, fmt.Sprintf("timeout (%s) contacting N8N", timeout)
		}
		return nil, 0, fmt.Sprintf("connection error contacting N8N (%s)", req.URL.Redacted())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Sprintf("failed to read N8N response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("HTTP %d from N8N (%s %s).", resp.StatusCode, req.Method, req.URL.Redacted())
		var parsed any
		if json.Unmarshal(raw, &parsed) == nil {
			if m, ok := parsed.(map[string]any); ok {
				if s, ok := m["message"].(string); ok {
					return nil, resp.StatusCode, msg + " Detail: " + s
				}
			}
			return nil, resp.StatusCode, msg + " Detail: " + stringify(parsed)
		}
		return nil, resp.StatusCode, msg + " Body: " + truncate(string(raw), 200)
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return nil, resp.StatusCode, ""
	}
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return string(raw), resp.StatusCode, ""
	}
	return parsed, resp.StatusCode, ""
}

var replyKeys = []string{"output", "response", "text", "message", "result", "answer", "content"}

// ExtractReply finds the reply text in a decoded response body.
func ExtractReply(data any) (string, bool) {
	switch v := data.(type) {
	case string:
		return v, true
	case map[string]any:
		if s, ok := firstKey(v); ok {
			return s, true
		}
		for _, sub := range []string{"json", "data"} {
			if nested, ok := v[sub].(map[string]any); ok {
				if s, ok := firstKey(nested); ok {
					return s, true
				}
			}
		}
	case []any:
		if len(v) == 0 {
			return "", false
		}
		switch first := v[0].(type) {
		case string:
			return first, true
		case map[string]any:
			return firstKey(first)
		}
	}
	return "", false
}

func firstKey(m map[string]any) (string, bool) {
	for _, k := range replyKeys {
		if s, ok := m[k].(string); ok {
			return s, true
		}
	}
	return "", false
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
