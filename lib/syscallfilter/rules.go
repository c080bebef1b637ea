// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package syscallfilter

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/warden-project/warden/lib/shortid"
)

// Rule protects a set of driver resources for a set of fixed
// identities.
type Rule struct {
	// Name labels the rule in logs and errors. Optional.
	Name string

	// Resources are the protected driver numbers.
	Resources []uint32

	// Permitted are the identities allowed through. Must all be
	// Fixed.
	Permitted []shortid.ShortId
}

func (r Rule) label(index int) string {
	if r.Name != "" {
		return fmt.Sprintf("%q", r.Name)
	}
	return fmt.Sprintf("#%d", index)
}

// ruleFile is the on-disk shape of a rules file.
type ruleFile struct {
	Rules []ruleEntry `json:"rules"`
}

type ruleEntry struct {
	Name      string   `json:"name"`
	Resources []uint32 `json:"resources"`
	Permitted []string `json:"permitted"`
}

// ParseRules strips JSONC comments and trailing commas from data and
// unmarshals the rule list. Permitted entries are either an explicit
// identity ("fixed:0x3be6efaa") or a package name ("blink"), which
// resolves to the identity that package receives when its credentials
// verify.
func ParseRules(data []byte) ([]Rule, error) {
	stripped := jsonc.ToJSON(data)

	var file ruleFile
	if err := json.Unmarshal(stripped, &file); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}

	rules := make([]Rule, 0, len(file.Rules))
	for i, entry := range file.Rules {
		rule := Rule{Name: entry.Name, Resources: entry.Resources}
		for _, permitted := range entry.Permitted {
			id, err := parsePermitted(permitted)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", rule.label(i), err)
			}
			rule.Permitted = append(rule.Permitted, id)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func parsePermitted(entry string) (shortid.ShortId, error) {
	if strings.HasPrefix(entry, "fixed:") {
		var id shortid.ShortId
		if err := id.UnmarshalText([]byte(entry)); err != nil {
			return shortid.ShortId{}, err
		}
		return id, nil
	}
	if err := shortid.ValidName(entry); err != nil {
		return shortid.ShortId{}, fmt.Errorf("permitted entry %q is neither an identity nor a package name: %w", entry, err)
	}
	return shortid.FromPackageName(entry), nil
}

// LoadRules reads a JSONC rules file and compiles it into a Protected
// policy.
func LoadRules(path string) (*Protected, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	policy, err := NewProtected(rules)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return policy, nil
}
