package content

import (
	"encoding/json"
	"fmt"
	"os"

	"spendlens/internal/logger"
	"spendlens/internal/progress"
)

// Item is a single SOP checklist entry. MustHave and Categorization mark
// which weighting bucket the item belongs to; an item may carry at most one
// of the two flags.
type Item struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	Description    string `json:"description,omitempty"`
	MustHave       bool   `json:"mustHave,omitempty"`
	Categorization bool   `json:"categorization,omitempty"`
}

// Section groups checklist items under a named step of the SOP
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// Checklist is the full SOP definition served to the UI and used to derive
// the progress tracker configuration
type Checklist struct {
	Title    string    `json:"title"`
	Version  string    `json:"version"`
	Sections []Section `json:"sections"`
}

// Load reads and validates a checklist definition from path
func Load(path string) (*Checklist, error) {
	log := logger.New("content").Function("Load")

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, log.Err("failed to read checklist definition", err, "path", path)
	}

	var checklist Checklist
	if err := json.Unmarshal(raw, &checklist); err != nil {
		return nil, log.Err("failed to parse checklist definition", err, "path", path)
	}

	if err := checklist.Validate(); err != nil {
		return nil, log.Err("invalid checklist definition", err, "path", path)
	}

	log.Info("Loaded checklist definition", "path", path, "sections", len(checklist.Sections), "items", len(checklist.ItemIDs()))
	return &checklist, nil
}

// Validate checks structural soundness: non-empty sections, unique item
// identifiers across the whole document, and no item claiming both buckets
func (c *Checklist) Validate() error {
	if len(c.Sections) == 0 {
		return fmt.Errorf("checklist has no sections")
	}

	seen := make(map[string]string)
	for _, section := range c.Sections {
		if section.ID == "" {
			return fmt.Errorf("section %q has no id", section.Title)
		}
		for _, item := range section.Items {
			if item.ID == "" {
				return fmt.Errorf("section %q contains an item with no id", section.ID)
			}
			if previous, duplicate := seen[item.ID]; duplicate {
				return fmt.Errorf("duplicate item id %q in sections %q and %q", item.ID, previous, section.ID)
			}
			seen[item.ID] = section.ID
			if item.MustHave && item.Categorization {
				return fmt.Errorf("item %q is marked both must-have and categorization", item.ID)
			}
		}
	}
	return nil
}

// ItemIDs returns every item identifier in document order
func (c *Checklist) ItemIDs() []string {
	var ids []string
	for _, section := range c.Sections {
		for _, item := range section.Items {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// SectionItemIDs returns the identifiers of one section, used for scoped
// resets
func (c *Checklist) SectionItemIDs(sectionID string) []string {
	for _, section := range c.Sections {
		if section.ID != sectionID {
			continue
		}
		ids := make([]string, 0, len(section.Items))
		for _, item := range section.Items {
			ids = append(ids, item.ID)
		}
		return ids
	}
	return nil
}

// TrackerConfig derives the progress configuration from the bucket flags
func (c *Checklist) TrackerConfig() progress.Config {
	var mustHave, categorization []string
	for _, section := range c.Sections {
		for _, item := range section.Items {
			switch {
			case item.MustHave:
				mustHave = append(mustHave, item.ID)
			case item.Categorization:
				categorization = append(categorization, item.ID)
			}
		}
	}
	return progress.DefaultConfig(mustHave, categorization)
}
