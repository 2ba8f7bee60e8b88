package domain

// HypixelPlayer is the normalized per-player Hypixel snapshot. Snapshots are
// cached whole, never field-by-field.
type HypixelPlayer struct {
	UUID              string  `json:"uuid"`
	Username          string  `json:"username"`
	NetworkLevel      float64 `json:"network_level"`
	Karma             int64   `json:"karma"`
	AchievementPoints int64   `json:"achievement_points"`
	FirstLogin        *int64  `json:"first_login,omitempty"`
	LastLogin         *int64  `json:"last_login,omitempty"`
	Source            Source  `json:"source"`
}

// HypixelFullData bundles a player snapshot with their guild, if any.
type HypixelFullData struct {
	Player *HypixelPlayer `json:"player"`
	Guild  *Guild         `json:"guild"`
}

// WynncraftRestrictions mirrors the per-profile privacy flags the Wynncraft
// API reports. A restricted section is returned as nil rather than zeroes.
type WynncraftRestrictions struct {
	MainAccess          bool `json:"main_access"`
	CharacterDataAccess bool `json:"character_data_access"`
	OnlineStatus        bool `json:"online_status"`
}

// WynncraftPlayerStats are the account-wide counters used for metrics.
type WynncraftPlayerStats struct {
	Wars              int     `json:"wars"`
	MobsKilled        int     `json:"mobs_killed"`
	ChestsOpened      int     `json:"chests_opened"`
	DungeonsCompleted int     `json:"dungeons_completed"`
	RaidsCompleted    int     `json:"raids_completed"`
	PlaytimeHours     float64 `json:"playtime_hours"`
}

// WynncraftPlayer is the normalized Wynncraft player summary snapshot.
type WynncraftPlayer struct {
	UUID         string                `json:"uuid"`
	Username     string                `json:"username"`
	Online       bool                  `json:"online"`
	Server       *string               `json:"server,omitempty"`
	Rank         string                `json:"rank"`
	FirstLogin   *string               `json:"first_login,omitempty"`
	LastLogin    *string               `json:"last_login,omitempty"`
	GuildName    *string               `json:"guild_name,omitempty"`
	GuildPrefix  *string               `json:"guild_prefix,omitempty"`
	Stats        *WynncraftPlayerStats `json:"player_stats,omitempty"`
	Restrictions WynncraftRestrictions `json:"restrictions"`
	Source       Source                `json:"source"`
}
