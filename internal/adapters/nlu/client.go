// Package nlu calls an OpenAI-compatible chat-completions endpoint to
// classify short SMS replies and extract structured edit intents. The
// service is treated as unreliable: any transport error, non-200 status,
// or response that fails the strict parse degrades to the unknown variant
// (or an empty patch) so the caller can re-prompt instead of failing.
package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"homieplanner/internal/domain"
)

// Config configures the classifier endpoint and HTTP behavior.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

type client struct {
	cfg Config
}

// NewClient returns a DecisionClassifier backed by a chat-completions API.
func NewClient(cfg Config) domain.DecisionClassifier {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &client{cfg: cfg}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const inviteReplyInstruction = `You classify an SMS reply to an event invitation.
Respond with JSON only: {"decision": "accepted" | "declined" | "unknown"}.
Use "unknown" unless the reply is a clear yes or a clear no.`

func (c *client) ClassifyInviteReply(ctx context.Context, invitation, text string) (domain.InviteReply, error) {
	content, err := c.complete(ctx, inviteReplyInstruction,
		fmt.Sprintf("Invitation: %s\nReply: %s", invitation, text))
	if err != nil {
		return domain.InviteReplyUnknown, err
	}
	var parsed struct {
		Decision string `json:"decision"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return domain.InviteReplyUnknown, fmt.Errorf("decode decision: %w", err)
	}
	// Strict whitelist: anything off it maps to unknown, never to a
	// partially trusted value.
	switch parsed.Decision {
	case "accepted":
		return domain.InviteReplyAccepted, nil
	case "declined":
		return domain.InviteReplyDeclined, nil
	default:
		return domain.InviteReplyUnknown, nil
	}
}

const draftReplyInstruction = `You classify an SMS reply from someone reviewing a draft event plan.
Respond with JSON only: {"decision": "confirm" | "edit" | "cancel" | "unknown"}.
"confirm" locks the plan in as shown. "edit" means they want any change. Use "unknown" when unsure.`

func (c *client) ClassifyDraftReply(ctx context.Context, preview, text string) (domain.DraftReply, error) {
	content, err := c.complete(ctx, draftReplyInstruction,
		fmt.Sprintf("Plan shown: %s\nReply: %s", preview, text))
	if err != nil {
		return domain.DraftReplyUnknown, err
	}
	var parsed struct {
		Decision string `json:"decision"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return domain.DraftReplyUnknown, fmt.Errorf("decode decision: %w", err)
	}
	switch parsed.Decision {
	case "confirm":
		return domain.DraftReplyConfirm, nil
	case "edit":
		return domain.DraftReplyEdit, nil
	case "cancel":
		return domain.DraftReplyCancel, nil
	default:
		return domain.DraftReplyUnknown, nil
	}
}

const patchInstruction = `You extract invite-plan edits from an SMS message.
Known homie names are provided; only use those exact names.
Respond with JSON only, any subset of:
{"bans": [], "unbans": [], "add": [], "remove": [],
 "swaps": [{"in": "", "out": ""}], "backup_order": []}`

func (c *client) ExtractPlanPatch(ctx context.Context, knownNames []string, text string) (domain.PlanPatch, error) {
	content, err := c.complete(ctx, patchInstruction,
		fmt.Sprintf("Known homies: %s\nMessage: %s", strings.Join(knownNames, ", "), text))
	if err != nil {
		return domain.PlanPatch{}, err
	}
	var patch domain.PlanPatch
	if err := json.Unmarshal([]byte(content), &patch); err != nil {
		return domain.PlanPatch{}, fmt.Errorf("decode patch: %w", err)
	}
	return patch, nil
}

func (c *client) complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    0,
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call decision service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("decision service returned status: %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("decision service returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
