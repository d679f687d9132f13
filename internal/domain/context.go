package domain

import "time"

type CommandContext struct {
	Room        string
	RoomName    string
	Sender      string
	SenderID    string
	IsGroupChat bool
	Message     string
	Timestamp   time.Time
}

func NewCommandContext(room, roomName, sender, senderID, message string, isGroupChat bool) *CommandContext {
	return &CommandContext{
		Room:        room,
		RoomName:    roomName,
		Sender:      sender,
		SenderID:    senderID,
		IsGroupChat: isGroupChat,
		Message:     message,
		Timestamp:   time.Now(),
	}
}

// UserKey identifies the sender for per-user storage. Falls back to the display
// name when the bridge does not supply a user id.
func (c *CommandContext) UserKey() string {
	if c.SenderID != "" {
		return c.SenderID
	}
	return c.Sender
}
