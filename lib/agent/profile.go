// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Profile is a named agent definition: which binary to spawn and how.
// Profiles are authored on disk as JSONC (JSON extended with comments
// and trailing commas).
type Profile struct {
	// ID is the profile name referenced by sessions.
	ID string `json:"id"`

	// Binary is the agent CLI executable. Resolved via PATH when not
	// absolute.
	Binary string `json:"binary"`

	// Args are extra arguments placed before the standard stream-json
	// flags (e.g. permission or tool allowlist flags).
	Args []string `json:"args,omitempty"`

	// Model is the default model identifier. A turn's model override
	// takes precedence.
	Model string `json:"model,omitempty"`
}

// ProfileSet is a collection of profiles plus the default choice used
// when a session names no agent.
type ProfileSet struct {
	Default  string    `json:"default"`
	Profiles []Profile `json:"agents"`
}

// ParseProfiles strips JSONC comments and trailing commas from data
// and unmarshals the result.
func ParseProfiles(data []byte) (*ProfileSet, error) {
	stripped := jsonc.ToJSON(data)

	var set ProfileSet
	if err := json.Unmarshal(stripped, &set); err != nil {
		return nil, fmt.Errorf("parsing agent profiles: %w", err)
	}
	if err := set.validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

// LoadProfiles reads a JSONC profile file from disk.
func LoadProfiles(path string) (*ProfileSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	set, err := ParseProfiles(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Lookup returns the profile with the given ID, or the default profile
// when id is empty.
func (s *ProfileSet) Lookup(id string) (*Profile, error) {
	if id == "" {
		id = s.Default
	}
	for i := range s.Profiles {
		if s.Profiles[i].ID == id {
			return &s.Profiles[i], nil
		}
	}
	return nil, fmt.Errorf("agent profile %q not found", id)
}

func (s *ProfileSet) validate() error {
	if len(s.Profiles) == 0 {
		return fmt.Errorf("agent profiles: no agents defined")
	}
	seen := make(map[string]bool, len(s.Profiles))
	for _, profile := range s.Profiles {
		if profile.ID == "" {
			return fmt.Errorf("agent profiles: agent with empty id")
		}
		if profile.Binary == "" {
			return fmt.Errorf("agent profile %q: binary is required", profile.ID)
		}
		if seen[profile.ID] {
			return fmt.Errorf("agent profiles: duplicate id %q", profile.ID)
		}
		seen[profile.ID] = true
	}
	if s.Default == "" {
		s.Default = s.Profiles[0].ID
	}
	if _, err := s.Lookup(s.Default); err != nil {
		return fmt.Errorf("agent profiles: default %q not defined", s.Default)
	}
	return nil
}
