package domain

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"strings"
)

// Capability identifies one functional area a staff member may be allowed
// to use. Each capability occupies a unique bit so sets of them can be
// combined and compared with plain bitwise operations.
type Capability uint64

const (
	CapabilityInventory Capability = 1 << iota
	CapabilityLeads
	CapabilityQuickSales
	CapabilityPublishedProducts
	CapabilityCampaigns
	CapabilityReports
	CapabilityNotifications
	CapabilityCalendar
	CapabilityChat

	capabilityEnd
)

// CapabilitySet is a bit-flag collection of capabilities. The zero value is
// the empty set and is always valid.
type CapabilitySet uint64

// CapabilityNone is the empty capability set.
const CapabilityNone CapabilitySet = 0

// AllCapabilities is the mask of every known capability bit.
const AllCapabilities = CapabilitySet(capabilityEnd - 1)

var capabilityNames = map[Capability]string{
	CapabilityInventory:         "inventory",
	CapabilityLeads:             "leads",
	CapabilityQuickSales:        "quick_sales",
	CapabilityPublishedProducts: "published_products",
	CapabilityCampaigns:         "campaigns",
	CapabilityReports:           "reports",
	CapabilityNotifications:     "notifications",
	CapabilityCalendar:          "calendar",
	CapabilityChat:              "chat",
}

var capabilitiesByName = func() map[string]Capability {
	m := make(map[string]Capability, len(capabilityNames))
	for c, name := range capabilityNames {
		m[name] = c
	}
	return m
}()

// String returns the capability's wire name.
func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("capability(%d)", uint64(c))
}

// ParseCapability resolves a wire name to its capability bit.
func ParseCapability(name string) (Capability, error) {
	c, ok := capabilitiesByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown capability %q", name)
	}
	return c, nil
}

// ParseCapabilitySet builds a set from wire names, rejecting unknown names.
func ParseCapabilitySet(names []string) (CapabilitySet, error) {
	set := CapabilityNone
	for _, name := range names {
		c, err := ParseCapability(name)
		if err != nil {
			return CapabilityNone, err
		}
		set = set.Grant(CapabilitySet(c))
	}
	return set, nil
}

// Has reports whether the set holds the given capability.
func (s CapabilitySet) Has(c Capability) bool {
	return s&CapabilitySet(c) != 0
}

// Grant returns the union of the set with the given capabilities. Granting
// an already-held capability is a no-op on the result.
func (s CapabilitySet) Grant(caps CapabilitySet) CapabilitySet {
	return s | caps
}

// Revoke returns the set with the given capabilities removed, whether or not
// they were present.
func (s CapabilitySet) Revoke(caps CapabilitySet) CapabilitySet {
	return s &^ caps
}

// Diff compares the set against a newer set and returns the capabilities
// that were added and removed. The two results are disjoint by construction.
func (s CapabilitySet) Diff(newer CapabilitySet) (added, removed CapabilitySet) {
	return newer &^ s, s &^ newer
}

// Apply replays an added/removed pair onto the set. Applying the same pair
// twice yields the same result as applying it once.
func (s CapabilitySet) Apply(added, removed CapabilitySet) CapabilitySet {
	return s.Revoke(removed).Grant(added)
}

// IsEmpty reports whether no capability is held.
func (s CapabilitySet) IsEmpty() bool {
	return s == CapabilityNone
}

// Valid reports whether every bit in the set belongs to the known
// capability enumeration.
func (s CapabilitySet) Valid() bool {
	return s&^AllCapabilities == 0
}

// Count returns the number of capabilities held.
func (s CapabilitySet) Count() int {
	return bits.OnesCount64(uint64(s))
}

// Names lists the wire names of the held capabilities in bit order.
func (s CapabilitySet) Names() []string {
	names := make([]string, 0, s.Count())
	for c := CapabilityInventory; c < capabilityEnd; c <<= 1 {
		if s.Has(c) {
			names = append(names, c.String())
		}
	}
	return names
}

// MarshalJSON encodes the set as an array of capability names.
func (s CapabilitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

// UnmarshalJSON decodes an array of capability names, rejecting unknown
// names so invalid bits never enter the system.
func (s *CapabilitySet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	parsed, err := ParseCapabilitySet(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// CapabilityCatalog lists every known capability name in bit order.
func CapabilityCatalog() []string {
	return AllCapabilities.Names()
}
