// Package scenario holds the catalog of support situations the generator
// turns into synthetic dialogues.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one catalog entry. The id doubles as the dataset record id for
// the dialogue generated from it, so ids must be unique and stable.
type Scenario struct {
	ID          int    `yaml:"id" json:"id"`
	Description string `yaml:"description" json:"description"`
}

// Catalog is an ordered list of scenarios.
type Catalog []Scenario

// Default returns the built-in catalog: twenty support situations across
// refunds, technical issues, tariffs, payments and account access, with a
// deliberate mix of resolutions, failures and difficult customers.
func Default() Catalog {
	descriptions := []string{
		"Refund request. Agent makes a mistake. Client is angry.",
		"Technical error. Agent gives useless links. Sarcasm.",
		"Tariff question. Successful case. Satisfied client.",
		"Payment issue. Double charge. Perfect resolution.",
		"Account access. Password reset fails. Agent ignores issue.",
		"Other. Physical address request. Quick response.",
		"Technical error. App crashes. Rude agent.",
		"Refund request. Wrong item. Exception made.",
		"Tariff question. Discount request. Free month offered.",
		"Payment issue. Card declined. Incorrect info given.",
		"Account access. Hacked account. Escalation.",
		"Technical error. Slow site. Agent is dismissive.",
		"Other. Account deletion. Manipulation attempt.",
		"Refund request. Partial refund. Calculation error.",
		"Tariff question. Hidden fees. Sarcasm.",
		"Payment issue. Promo code fail. Manual fix.",
		"Account access. 2FA issue. Unnecessary personal info.",
		"Technical error. Video issue. Workaround found.",
		"Refund request. Policy denial. Polite explanation.",
		"Tariff question. Upgrade plan. Quick fuss-free fix.",
	}

	catalog := make(Catalog, len(descriptions))
	for i, d := range descriptions {
		catalog[i] = Scenario{ID: i + 1, Description: d}
	}
	return catalog
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario catalog %s: %w", path, err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse scenario catalog %s: %w", path, err)
	}

	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario catalog %s: %w", path, err)
	}

	return catalog, nil
}

// Validate checks that the catalog is non-empty with unique positive ids and
// non-empty descriptions.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("catalog is empty")
	}

	seen := make(map[int]struct{}, len(c))
	for i, s := range c {
		if s.ID <= 0 {
			return fmt.Errorf("scenario %d has non-positive id %d", i, s.ID)
		}
		if _, ok := seen[s.ID]; ok {
			return fmt.Errorf("duplicate scenario id %d", s.ID)
		}
		seen[s.ID] = struct{}{}
		if s.Description == "" {
			return fmt.Errorf("scenario %d has empty description", s.ID)
		}
	}

	return nil
}
