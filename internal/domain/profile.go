package domain

import (
	"strconv"
	"time"
)

// EnkaProfileResponse is the body of GET /api/uid/{uid}/.
type EnkaProfileResponse struct {
	PlayerInfo PlayerInfo `json:"playerInfo"`
	TTL        int        `json:"ttl"`
	UID        string     `json:"uid"`
}

type PlayerInfo struct {
	Nickname             string           `json:"nickname"`
	Level                int              `json:"level"`
	Signature            string           `json:"signature"`
	WorldLevel           int              `json:"worldLevel"`
	NameCardID           int64            `json:"nameCardId"`
	FinishAchievementNum int              `json:"finishAchievementNum"`
	TowerFloorIndex      int              `json:"towerFloorIndex"`
	TowerLevelIndex      int              `json:"towerLevelIndex"`
	ShowAvatarInfoList   []ShowAvatarInfo `json:"showAvatarInfoList"`
}

type ShowAvatarInfo struct {
	AvatarID  int64 `json:"avatarId"`
	Level     int   `json:"level"`
	CostumeID int64 `json:"costumeId,omitempty"`
}

// OwnedCharacter is one entry of a player's public roster.
type OwnedCharacter struct {
	ID        CharacterID `json:"id"`
	Level     int         `json:"level"`
	CostumeID int64       `json:"costumeId,omitempty"`
}

// ProfileSnapshot is the cached summary of a player's public profile. It stays
// valid until explicitly refreshed.
type ProfileSnapshot struct {
	UID          string           `json:"uid"`
	Nickname     string           `json:"nickname"`
	Level        int              `json:"level"`
	Signature    string           `json:"signature"`
	WorldLevel   int              `json:"worldLevel"`
	Achievements int              `json:"achievements"`
	AbyssFloor   int              `json:"abyssFloor"`
	AbyssChamber int              `json:"abyssChamber"`
	Characters   []OwnedCharacter `json:"characters"`
	FetchedAt    time.Time        `json:"fetchedAt"`
}

// NewProfileSnapshot converts an API response into a snapshot.
func NewProfileSnapshot(uid string, resp *EnkaProfileResponse, fetchedAt time.Time) *ProfileSnapshot {
	info := resp.PlayerInfo
	snapshot := &ProfileSnapshot{
		UID:          uid,
		Nickname:     info.Nickname,
		Level:        info.Level,
		Signature:    info.Signature,
		WorldLevel:   info.WorldLevel,
		Achievements: info.FinishAchievementNum,
		AbyssFloor:   info.TowerFloorIndex,
		AbyssChamber: info.TowerLevelIndex,
		Characters:   make([]OwnedCharacter, 0, len(info.ShowAvatarInfoList)),
		FetchedAt:    fetchedAt,
	}
	for _, avatar := range info.ShowAvatarInfoList {
		snapshot.Characters = append(snapshot.Characters, OwnedCharacter{
			ID:        CharacterID(strconv.FormatInt(avatar.AvatarID, 10)),
			Level:     avatar.Level,
			CostumeID: avatar.CostumeID,
		})
	}
	return snapshot
}
