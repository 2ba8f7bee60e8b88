package domain

// GuildMember is a roster entry as the guild origin reports it. It carries no
// identity data beyond the uuid; a guild cache hit says nothing about whether
// the member identities are cached.
type GuildMember struct {
	UUID   string `json:"uuid"`
	Rank   string `json:"rank"`
	Joined string `json:"joined"`
	Online bool   `json:"online"`
}

// Guild is a cached guild snapshot with its full roster.
type Guild struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Tag         string        `json:"tag,omitempty"`
	Level       int           `json:"level"`
	MemberCount int           `json:"member_count"`
	Members     []GuildMember `json:"members"`
	Source      Source        `json:"source"`
}

// GuildMemberFull is a roster entry joined with the member's resolved identity.
type GuildMemberFull struct {
	UUID     string  `json:"uuid"`
	Username string  `json:"username"`
	SkinURL  *string `json:"skin_url,omitempty"`
	Rank     string  `json:"rank"`
	Joined   string  `json:"joined"`
}
