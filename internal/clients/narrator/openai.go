package narrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fableforge/rules-api/internal/entities"
	"github.com/fableforge/rules-api/internal/errors"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 30 * time.Second

	// The data contract the narrator must honor. The prose style around it
	// is the prompt author's business, not this package's.
	systemPrompt = "You are the narrator of a fantasy role-playing session. " +
		"Narrate the player's action using ONLY the mechanical facts provided; " +
		"you may not change hit/miss results, damage numbers, deaths, or loot amounts. " +
		"Respond with JSON: a narration string and a state_changes object proposing " +
		"hp_delta, gold_delta, xp_delta, inventory_add, inventory_remove, location, " +
		"world_state (a list of key/value entries), item_used, commerce_sell, and " +
		"commerce_buy. Use null for fields you are not proposing."
)

// chatRequest is the minimal request shape for the Chat Completions endpoint
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string           `json:"type"`
	JSONSchema jsonSchemaConfig `json:"json_schema"`
}

type jsonSchemaConfig struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

// chatResponse is the minimal response shape, including token usage
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

// narratorReply is the content shape the model is constrained to
type narratorReply struct {
	Narration        string          `json:"narration"`
	StateChanges     proposedChanges `json:"state_changes"`
	EncounterEnemies []string        `json:"encounter_enemies"`
}

// proposedChanges mirrors entities.ProposedStateChanges on the wire.
// world_state is flattened to key/value entries because a strict schema
// cannot express a free-form map.
type proposedChanges struct {
	HPDelta         int32                 `json:"hp_delta"`
	GoldDelta       int32                 `json:"gold_delta"`
	XPDelta         int32                 `json:"xp_delta"`
	InventoryAdd    []string              `json:"inventory_add"`
	InventoryRemove []string              `json:"inventory_remove"`
	Location        string                `json:"location"`
	WorldState      []worldStateEntry     `json:"world_state"`
	ItemUsed        string                `json:"item_used"`
	CommerceSell    string                `json:"commerce_sell"`
	CommerceBuy     *entities.CommerceBuy `json:"commerce_buy"`
}

type worldStateEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (p *proposedChanges) toEntities() entities.ProposedStateChanges {
	out := entities.ProposedStateChanges{
		HPDelta:         p.HPDelta,
		GoldDelta:       p.GoldDelta,
		XPDelta:         p.XPDelta,
		InventoryAdd:    p.InventoryAdd,
		InventoryRemove: p.InventoryRemove,
		Location:        p.Location,
		ItemUsed:        p.ItemUsed,
		CommerceSell:    p.CommerceSell,
		CommerceBuy:     p.CommerceBuy,
	}
	if len(p.WorldState) > 0 {
		out.WorldState = make(map[string]interface{}, len(p.WorldState))
		for _, entry := range p.WorldState {
			out.WorldState[entry.Key] = entry.Value
		}
	}
	return out
}

// HTTPStatusError captures non-2xx upstream responses
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("narrator: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// OpenAIConfig holds the configuration for the OpenAI-compatible client
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// Validate ensures required settings are provided
func (c *OpenAIConfig) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.APIKey == "" {
		vb.RequiredField("APIKey")
	}
	if c.Model == "" {
		vb.RequiredField("Model")
	}

	return vb.Build()
}

// OpenAIClient talks to any OpenAI-compatible chat-completions endpoint
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAIClient creates a new narrator client
func NewOpenAIClient(cfg *OpenAIConfig) (*OpenAIClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &OpenAIClient{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: httpClient,
	}, nil
}

var _ Client = (*OpenAIClient)(nil)

// Narrate sends the mechanical facts and action text, returning the prose
// and the proposed state changes
func (c *OpenAIClient) Narrate(ctx context.Context, req *Request) (*Narration, error) {
	userContent, err := buildUserContent(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build narrator request")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		ResponseFormat: narratorReplyFormat(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal narrator request")
	}

	url := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create narrator request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "narrator request failed")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, errors.WrapWithCode(
			&HTTPStatusError{StatusCode: res.StatusCode, URL: url, Body: string(buf)},
			errors.CodeUnavailable,
			"narrator returned an error status",
		)
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read narrator response")
	}

	var payload chatResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to decode narrator response")
	}
	if len(payload.Choices) == 0 {
		return nil, errors.Unavailable("narrator response contained no choices")
	}

	var reply narratorReply
	if err := json.Unmarshal([]byte(payload.Choices[0].Message.Content), &reply); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "narrator reply was not valid JSON")
	}

	return &Narration{
		Text:             reply.Narration,
		Proposed:         reply.StateChanges.toEntities(),
		EncounterEnemies: reply.EncounterEnemies,
		Usage: TokenUsage{
			InputTokens:  payload.Usage.PromptTokens,
			OutputTokens: payload.Usage.CompletionTokens,
		},
	}, nil
}

// buildUserContent serializes the mechanical facts for the model
func buildUserContent(req *Request) (string, error) {
	facts := map[string]interface{}{
		"action_text": req.ActionText,
		"location":    req.Location,
	}
	if req.Character != nil {
		facts["character"] = map[string]interface{}{
			"name":       req.Character.Name,
			"level":      req.Character.Level,
			"current_hp": req.Character.CurrentHP,
			"max_hp":     req.Character.MaxHP,
			"gold":       req.Character.Gold,
			"inventory":  req.Character.Inventory,
		}
	}
	if len(req.WorldState) > 0 {
		facts["world_state"] = req.WorldState
	}
	if len(req.Outcomes) > 0 {
		facts["combat_outcomes"] = req.Outcomes
		facts["encounter_victory"] = req.EncounterVictory
		facts["encounter_defeat"] = req.EncounterDefeat
	}
	if req.ClaimedGold > 0 || len(req.ClaimedItems) > 0 {
		facts["loot_claimed"] = map[string]interface{}{
			"gold":  req.ClaimedGold,
			"items": req.ClaimedItems,
		}
	}

	data, err := json.Marshal(facts)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// narratorReplyFormat builds the strict response schema. Strict mode
// demands that every property key is listed in required and that every
// object node carries additionalProperties: false; optional fields are
// expressed as null unions instead.
func narratorReplyFormat() *responseFormat {
	return &responseFormat{
		Type: "json_schema",
		JSONSchema: jsonSchemaConfig{
			Name:   "narrator_reply",
			Strict: true,
			Schema: json.RawMessage(`{
				"type": "object",
				"additionalProperties": false,
				"properties": {
					"narration": {"type": "string"},
					"encounter_enemies": {"type": ["array", "null"], "items": {"type": "string"}},
					"state_changes": {
						"type": "object",
						"additionalProperties": false,
						"properties": {
							"hp_delta": {"type": "integer"},
							"gold_delta": {"type": "integer"},
							"xp_delta": {"type": "integer"},
							"inventory_add": {"type": ["array", "null"], "items": {"type": "string"}},
							"inventory_remove": {"type": ["array", "null"], "items": {"type": "string"}},
							"location": {"type": ["string", "null"]},
							"world_state": {
								"type": ["array", "null"],
								"items": {
									"type": "object",
									"additionalProperties": false,
									"properties": {
										"key": {"type": "string"},
										"value": {"type": "string"}
									},
									"required": ["key", "value"]
								}
							},
							"item_used": {"type": ["string", "null"]},
							"commerce_sell": {"type": ["string", "null"]},
							"commerce_buy": {
								"type": ["object", "null"],
								"additionalProperties": false,
								"properties": {
									"item": {"type": "string"},
									"price": {"type": "integer"}
								},
								"required": ["item", "price"]
							}
						},
						"required": ["hp_delta", "gold_delta", "xp_delta", "inventory_add", "inventory_remove", "location", "world_state", "item_used", "commerce_sell", "commerce_buy"]
					}
				},
				"required": ["narration", "state_changes", "encounter_enemies"]
			}`),
		},
	}
}
