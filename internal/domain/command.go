package domain

type CommandType string

const (
	CommandShowcase CommandType = "enka"
	CommandBind     CommandType = "enka_uid"
	CommandUpgrade  CommandType = "enka_upgrade"
	CommandAlias    CommandType = "enka_alias"
	CommandHelp     CommandType = "help"
	CommandUnknown  CommandType = "unknown"
)

func (c CommandType) String() string {
	return string(c)
}

func (c CommandType) IsValid() bool {
	switch c {
	case CommandShowcase, CommandBind, CommandUpgrade, CommandAlias, CommandHelp, CommandUnknown:
		return true
	default:
		return false
	}
}
