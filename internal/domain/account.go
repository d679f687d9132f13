package domain

import (
	"strings"
	"time"

	"github.com/kapu/enka-kakao-bot-go/internal/constants"
	"github.com/kapu/enka-kakao-bot-go/pkg/errors"
)

// AccountBinding links a chat sender to a game account UID.
type AccountBinding struct {
	SenderID  string    `json:"senderId"`
	UID       string    `json:"uid"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ValidateUID checks the UID format: 4-10 digits with a server-region first digit.
func ValidateUID(uid string) (string, error) {
	trimmed := strings.TrimSpace(uid)
	if !constants.UIDPattern.MatchString(trimmed) {
		return "", errors.NewValidationError("invalid uid", "uid", uid)
	}
	return trimmed, nil
}
