package domain

import "time"

// AliasEntry is a user-contributed alternate name for a character.
type AliasEntry struct {
	CharacterID CharacterID `json:"characterId"`
	Alias       string      `json:"alias"`
	CreatedAt   time.Time   `json:"createdAt"`
}
