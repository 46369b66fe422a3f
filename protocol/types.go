package protocol

// PlayerInfo describes a player in a room.
type PlayerInfo struct {
	ID             PlayerID        `json:"id"`
	Name           string          `json:"name"`
	IsAuthority    bool            `json:"is_authority"`
	IsReady        bool            `json:"is_ready"`
	ConnectedAt    string          `json:"connected_at"` // ISO 8601
	ConnectionInfo *ConnectionInfo `json:"connection_info,omitempty"`
}

// SpectatorInfo describes a read-only observer of a room.
type SpectatorInfo struct {
	ID          PlayerID `json:"id"`
	Name        string   `json:"name"`
	ConnectedAt string   `json:"connected_at"`
}

// PeerConnectionInfo is handed to every player when the game starts.
type PeerConnectionInfo struct {
	PlayerID       PlayerID        `json:"player_id"`
	PlayerName     string          `json:"player_name"`
	IsAuthority    bool            `json:"is_authority"`
	RelayType      string          `json:"relay_type"`
	ConnectionInfo *ConnectionInfo `json:"connection_info,omitempty"`
}

// RateLimitInfo is the request budget granted to an application.
type RateLimitInfo struct {
	PerMinute uint32 `json:"per_minute"`
	PerHour   uint32 `json:"per_hour"`
	PerDay    uint32 `json:"per_day"`
}

// PlayerNameRules describes which characters a deployment allows in
// player names.
type PlayerNameRules struct {
	MaxLength                      uint       `json:"max_length"`
	MinLength                      uint       `json:"min_length"`
	AllowUnicodeAlphanumeric       bool       `json:"allow_unicode_alphanumeric"`
	AllowSpaces                    bool       `json:"allow_spaces"`
	AllowLeadingTrailingWhitespace bool       `json:"allow_leading_trailing_whitespace"`
	AllowedSymbols                 List[Char] `json:"allowed_symbols" wire:"default"`
	AdditionalAllowedCharacters    *string    `json:"additional_allowed_characters,omitempty"`
}

// RoomDetails is the room snapshot shared by RoomJoined and Reconnected.
type RoomDetails struct {
	RoomID            RoomID              `json:"room_id"`
	RoomCode          string              `json:"room_code"`
	PlayerID          PlayerID            `json:"player_id"`
	GameName          string              `json:"game_name"`
	MaxPlayers        uint8               `json:"max_players"`
	SupportsAuthority bool                `json:"supports_authority"`
	CurrentPlayers    List[PlayerInfo]    `json:"current_players"`
	IsAuthority       bool                `json:"is_authority"`
	LobbyState        LobbyState          `json:"lobby_state"`
	ReadyPlayers      List[PlayerID]      `json:"ready_players"`
	RelayType         string              `json:"relay_type"`
	CurrentSpectators List[SpectatorInfo] `json:"current_spectators" wire:"default"`
}
