package domain

import (
	"sort"
	"strconv"
	"strings"
)

// CharacterID is the canonical Enka avatar id ("10000002"). Traveler element
// variants carry a skill-depot suffix ("10000005-504").
type CharacterID string

func (id CharacterID) String() string {
	return string(id)
}

// CharacterReference is one character from the merged reference data.
type CharacterReference struct {
	ID          CharacterID         `json:"id"`
	Names       map[string][]string `json:"names"` // locale -> display names
	SelectorKey string              `json:"selectorKey"`
	Element     string              `json:"element,omitempty"`
	Quality     string              `json:"quality,omitempty"`
	WeaponType  string              `json:"weaponType,omitempty"`
}

// AllNames returns every display name ordered by locale code.
func (c *CharacterReference) AllNames() []string {
	locales := make([]string, 0, len(c.Names))
	for locale := range c.Names {
		locales = append(locales, locale)
	}
	sort.Strings(locales)

	names := make([]string, 0, len(locales))
	for _, locale := range locales {
		names = append(names, c.Names[locale]...)
	}
	return names
}

// DisplayName picks the first name for locale, falling back to any locale and
// finally the id.
func (c *CharacterReference) DisplayName(locale string) string {
	if names := c.Names[locale]; len(names) > 0 {
		return names[0]
	}
	if all := c.AllNames(); len(all) > 0 {
		return all[0]
	}
	return string(c.ID)
}

// ReferenceData is an immutable snapshot of every known character. It is
// replaced wholesale on refresh.
type ReferenceData struct {
	characters []*CharacterReference
	byID       map[CharacterID]*CharacterReference
}

func NewReferenceData(characters []*CharacterReference) *ReferenceData {
	data := &ReferenceData{
		characters: make([]*CharacterReference, 0, len(characters)),
		byID:       make(map[CharacterID]*CharacterReference, len(characters)),
	}
	for _, c := range characters {
		if c == nil || c.ID == "" {
			continue
		}
		if _, dup := data.byID[c.ID]; dup {
			continue
		}
		data.characters = append(data.characters, c)
		data.byID[c.ID] = c
	}
	return data
}

func (r *ReferenceData) Find(id CharacterID) *CharacterReference {
	if r == nil {
		return nil
	}
	return r.byID[id]
}

// Characters returns the characters in load order. Callers must not mutate the entries.
func (r *ReferenceData) Characters() []*CharacterReference {
	if r == nil {
		return nil
	}
	out := make([]*CharacterReference, len(r.characters))
	copy(out, r.characters)
	return out
}

func (r *ReferenceData) Len() int {
	if r == nil {
		return 0
	}
	return len(r.characters)
}

// CharacterMetadata mirrors one entry of Enka's characters.json store.
type CharacterMetadata struct {
	Element         string             `json:"Element"`
	Consts          []string           `json:"Consts"`
	SkillOrder      []int64            `json:"SkillOrder"`
	Skills          map[string]string  `json:"Skills"`
	ProudMap        map[string]int64   `json:"ProudMap"`
	NameTextMapHash int64              `json:"NameTextMapHash"`
	SideIconName    string             `json:"SideIconName"`
	QualityType     string             `json:"QualityType"`
	WeaponType      string             `json:"WeaponType"`
	Costumes        map[string]Costume `json:"Costumes,omitempty"`
}

type Costume struct {
	SideIconName string `json:"sideIconName"`
	Icon         string `json:"icon"`
	Art          string `json:"art"`
	AvatarID     int64  `json:"avatarId"`
}

// MetadataDocument is characters.json: character id -> metadata.
type MetadataDocument map[string]CharacterMetadata

// NameDocument is loc.json: locale -> text hash -> localized text.
type NameDocument map[string]map[string]string

// MergeReference joins the metadata and name documents by NameTextMapHash.
// Only the listed locales are kept; an empty list keeps every locale.
// Characters without a side icon cannot be located on the showcase and are skipped.
func MergeReference(meta MetadataDocument, names NameDocument, locales []string, iconPrefix string) *ReferenceData {
	ids := make([]string, 0, len(meta))
	for id := range meta {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(locales) == 0 {
		for locale := range names {
			locales = append(locales, locale)
		}
		sort.Strings(locales)
	}

	characters := make([]*CharacterReference, 0, len(ids))
	for _, id := range ids {
		m := meta[id]
		if m.SideIconName == "" {
			continue
		}

		hash := strconv.FormatInt(m.NameTextMapHash, 10)
		localized := make(map[string][]string, len(locales))
		for _, locale := range locales {
			table, ok := names[locale]
			if !ok {
				continue
			}
			if name := strings.TrimSpace(table[hash]); name != "" {
				localized[locale] = []string{name}
			}
		}

		characters = append(characters, &CharacterReference{
			ID:          CharacterID(id),
			Names:       localized,
			SelectorKey: strings.TrimPrefix(m.SideIconName, iconPrefix),
			Element:     m.Element,
			Quality:     m.QualityType,
			WeaponType:  m.WeaponType,
		})
	}

	return NewReferenceData(characters)
}
