package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/firm-research/internal/model"
	"github.com/sells-group/firm-research/pkg/anthropic"
)

const rosterAssistSystem = `You extract attorney rosters from law firm web pages.
Respond with ONLY a JSON array of objects with "name" and "title" string
fields. No prose, no markdown fences. Return [] if no attorneys appear.`

const maxAssistInput = 12000

// RosterAssist asks the text-extraction service for attorneys when
// pattern matching found none. Its output is untrusted: every entry is
// re-validated with the same plausibility filter the pattern strategies
// use, and a parse failure degrades to an empty result.
type RosterAssist struct {
	client anthropic.Client
	model  string
}

// NewRosterAssist builds the assist. client may be nil, which disables it.
func NewRosterAssist(client anthropic.Client, modelName string) *RosterAssist {
	return &RosterAssist{client: client, model: modelName}
}

// Enabled reports whether an extraction client is configured.
func (a *RosterAssist) Enabled() bool {
	return a != nil && a.client != nil
}

type assistEntry struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Extract returns validated attorneys from the page text, or nil with
// an error that the caller converts to a warning.
func (a *RosterAssist) Extract(ctx context.Context, pageText string) ([]model.Attorney, error) {
	if len(pageText) > maxAssistInput {
		pageText = pageText[:maxAssistInput]
	}

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: 1024,
		System:    rosterAssistSystem,
		Messages: []anthropic.Message{
			{Role: "user", Content: pageText},
		},
	})
	if err != nil {
		return nil, err
	}

	entries := parseAssistResponse(resp.Text())
	var out []model.Attorney
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if !plausibleName(name) {
			zap.L().Debug("roster assist: rejected implausible name", zap.String("name", name))
			continue
		}
		title := strings.TrimSpace(e.Title)
		if len(title) > 60 {
			title = ""
		}
		out = append(out, model.Attorney{Name: name, Title: title})
	}
	return out, nil
}

// parseAssistResponse tolerates the fences and prose the model was told
// not to emit. Anything that still fails to parse yields nil.
func parseAssistResponse(text string) []assistEntry {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil
	}

	var entries []assistEntry
	if err := json.Unmarshal([]byte(text[start:end+1]), &entries); err != nil {
		zap.L().Debug("roster assist: unparseable response", zap.Error(err))
		return nil
	}
	return entries
}
