// AngelaMos | 2026
// tier.go

package license

import (
	"fmt"
	"sort"
	"strings"

	"github.com/carterperez-dev/templates/license-gate/internal/config"
)

// Tier is a license class: a code prefix, the multiset of characters every
// code body must be a permutation of, and the budgets written into a
// License when it is activated.
type Tier struct {
	Name         string
	Prefix       byte
	Alphabet     string
	DisplayName  string
	MaxQuestions int
	MaxDays      int

	reference string
}

// Tiers is the registry of configured tiers, looked up by code prefix.
type Tiers struct {
	byPrefix map[byte]*Tier
	byName   map[string]*Tier
	order    []*Tier
	bodyLen  int
}

func NewTiers(cfgs []config.TierConfig) (*Tiers, error) {
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("new tiers: no tiers configured")
	}

	t := &Tiers{
		byPrefix: make(map[byte]*Tier, len(cfgs)),
		byName:   make(map[string]*Tier, len(cfgs)),
		order:    make([]*Tier, 0, len(cfgs)),
	}

	for _, c := range cfgs {
		prefix := strings.ToUpper(c.Prefix)
		if len(prefix) != 1 {
			return nil, fmt.Errorf("new tiers: %s: prefix must be one character", c.Name)
		}

		alphabet := strings.ToUpper(c.Alphabet)
		if t.bodyLen == 0 {
			t.bodyLen = len(alphabet)
		}
		if len(alphabet) == 0 || len(alphabet) != t.bodyLen {
			return nil, fmt.Errorf(
				"new tiers: %s: alphabet must be %d characters",
				c.Name, t.bodyLen,
			)
		}

		tier := &Tier{
			Name:         strings.ToUpper(c.Name),
			Prefix:       prefix[0],
			Alphabet:     alphabet,
			DisplayName:  c.DisplayName,
			MaxQuestions: c.MaxQuestions,
			MaxDays:      c.MaxDays,
			reference:    sortedChars(alphabet),
		}
		if tier.DisplayName == "" {
			tier.DisplayName = tier.Name
		}

		if _, dup := t.byPrefix[tier.Prefix]; dup {
			return nil, fmt.Errorf("new tiers: duplicate prefix %c", tier.Prefix)
		}
		if _, dup := t.byName[tier.Name]; dup {
			return nil, fmt.Errorf("new tiers: duplicate tier %s", tier.Name)
		}

		t.byPrefix[tier.Prefix] = tier
		t.byName[tier.Name] = tier
		t.order = append(t.order, tier)
	}

	return t, nil
}

// DefaultTiers returns the BASIC/PREMIUM registry.
func DefaultTiers() *Tiers {
	t, err := NewTiers(config.DefaultTiers())
	if err != nil {
		panic(fmt.Sprintf("license: default tiers: %v", err))
	}
	return t
}

func (t *Tiers) ByPrefix(prefix byte) (*Tier, bool) {
	tier, ok := t.byPrefix[prefix]
	return tier, ok
}

func (t *Tiers) ByName(name string) (*Tier, bool) {
	tier, ok := t.byName[strings.ToUpper(strings.TrimSpace(name))]
	return tier, ok
}

func (t *Tiers) Names() []string {
	names := make([]string, 0, len(t.order))
	for _, tier := range t.order {
		names = append(names, tier.Name)
	}
	return names
}

// CodeLength is the total length of a normalized code, prefix included.
func (t *Tiers) CodeLength() int {
	return 1 + t.bodyLen
}

func sortedChars(s string) string {
	b := []byte(s)
	sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })
	return string(b)
}
