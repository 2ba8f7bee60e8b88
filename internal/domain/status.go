package domain

// PlayerStatus merges the two independent presence sources. Every field
// defaults to offline/unknown when its source had no data for the player.
type PlayerStatus struct {
	WynncraftRestricted bool    `json:"wynncraft_restricted"`
	WynncraftOnline     bool    `json:"wynncraft_online"`
	WynncraftServer     *string `json:"wynncraft_server"`
	WynncraftCharacter  *string `json:"wynncraft_character"`
	HypixelOnline       bool    `json:"hypixel_online"`
	HypixelGameType     *string `json:"hypixel_game_type"`
	HypixelMode         *string `json:"hypixel_mode"`
}
