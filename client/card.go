// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/go-a2a/a2a-gateway"
)

// AgentCardPath is the well-known path where agent cards are published.
const AgentCardPath = "/.well-known/agent-card"

// AgentCard fetches and validates the agent card published at the base URL.
func (c *Client) AgentCard(ctx context.Context) (*a2a.AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+AgentCardPath, http.NoBody)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch agent card: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: readSnippet(resp.Body)}
	}

	var card a2a.AgentCard
	if err := json.UnmarshalDecode(jsontext.NewDecoder(resp.Body), &card); err != nil {
		return nil, fmt.Errorf("decode agent card: %w", err)
	}
	if err := ValidateAgentCard(&card); err != nil {
		return nil, err
	}

	return &card, nil
}

// ValidateAgentCard validates an agent card.
func ValidateAgentCard(card *a2a.AgentCard) error {
	if card == nil {
		return errors.New("agent card is nil")
	}
	if card.Name == "" {
		return errors.New("agent card missing required field: name")
	}
	if card.URL == "" {
		return errors.New("agent card missing required field: url")
	}
	if card.Version == "" {
		return errors.New("agent card missing required field: version")
	}

	for i, skill := range card.Skills {
		if skill.ID == "" {
			return fmt.Errorf("skill #%d missing required field: id", i+1)
		}
		if skill.Name == "" {
			return fmt.Errorf("skill #%d missing required field: name", i+1)
		}
	}

	return nil
}

// FindSkill finds a skill by ID in an agent card.
func FindSkill(card *a2a.AgentCard, skillID string) (*a2a.AgentSkill, bool) {
	for i := range card.Skills {
		if card.Skills[i].ID == skillID {
			return &card.Skills[i], true
		}
	}
	return nil, false
}
