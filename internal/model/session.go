package model

type SyncMode string

const (
	SyncLocal SyncMode = "local"
	SyncCloud SyncMode = "cloud"
)

// ParseSyncMode maps stored values to a mode. The legacy "firebase" value means cloud.
func ParseSyncMode(s string) SyncMode {
	switch s {
	case "cloud", "firebase":
		return SyncCloud
	default:
		return SyncLocal
	}
}

type Session struct {
	FamilyCode string   `json:"familyCode"`
	FamilyID   string   `json:"familyId"`
	UserName   string   `json:"userName"`
	Connected  bool     `json:"isConnectedToFamily"`
	Mode       SyncMode `json:"syncMode"`
}

// Remote reports whether mutations should target the remote store.
func (s Session) Remote() bool {
	return s.Mode == SyncCloud && s.FamilyID != ""
}
