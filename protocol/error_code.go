package protocol

// ErrorCode is a structured error code sent by the server, serialized in
// SCREAMING_SNAKE_CASE (e.g. "ROOM_NOT_FOUND").
type ErrorCode string

const (
	// authentication
	CodeUnauthorized              ErrorCode = "UNAUTHORIZED"
	CodeInvalidToken              ErrorCode = "INVALID_TOKEN"
	CodeAuthenticationRequired    ErrorCode = "AUTHENTICATION_REQUIRED"
	CodeInvalidAppID              ErrorCode = "INVALID_APP_ID"
	CodeAppIDExpired              ErrorCode = "APP_ID_EXPIRED"
	CodeAppIDRevoked              ErrorCode = "APP_ID_REVOKED"
	CodeAppIDSuspended            ErrorCode = "APP_ID_SUSPENDED"
	CodeMissingAppID              ErrorCode = "MISSING_APP_ID"
	CodeAuthenticationTimeout     ErrorCode = "AUTHENTICATION_TIMEOUT"
	CodeSDKVersionUnsupported     ErrorCode = "SDK_VERSION_UNSUPPORTED"
	CodeUnsupportedGameDataFormat ErrorCode = "UNSUPPORTED_GAME_DATA_FORMAT"

	// validation
	CodeInvalidInput      ErrorCode = "INVALID_INPUT"
	CodeInvalidGameName   ErrorCode = "INVALID_GAME_NAME"
	CodeInvalidRoomCode   ErrorCode = "INVALID_ROOM_CODE"
	CodeInvalidPlayerName ErrorCode = "INVALID_PLAYER_NAME"
	CodeInvalidMaxPlayers ErrorCode = "INVALID_MAX_PLAYERS"
	CodeMessageTooLarge   ErrorCode = "MESSAGE_TOO_LARGE"

	// rooms
	CodeRoomNotFound            ErrorCode = "ROOM_NOT_FOUND"
	CodeRoomFull                ErrorCode = "ROOM_FULL"
	CodeAlreadyInRoom           ErrorCode = "ALREADY_IN_ROOM"
	CodeNotInRoom               ErrorCode = "NOT_IN_ROOM"
	CodeRoomCreationFailed      ErrorCode = "ROOM_CREATION_FAILED"
	CodeMaxRoomsPerGameExceeded ErrorCode = "MAX_ROOMS_PER_GAME_EXCEEDED"
	CodeInvalidRoomState        ErrorCode = "INVALID_ROOM_STATE"

	// authority
	CodeAuthorityNotSupported ErrorCode = "AUTHORITY_NOT_SUPPORTED"
	CodeAuthorityConflict     ErrorCode = "AUTHORITY_CONFLICT"
	CodeAuthorityDenied       ErrorCode = "AUTHORITY_DENIED"

	// rate limiting
	CodeRateLimitExceeded  ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeTooManyConnections ErrorCode = "TOO_MANY_CONNECTIONS"

	// reconnection
	CodeReconnectionFailed       ErrorCode = "RECONNECTION_FAILED"
	CodeReconnectionTokenInvalid ErrorCode = "RECONNECTION_TOKEN_INVALID"
	CodeReconnectionExpired      ErrorCode = "RECONNECTION_EXPIRED"
	CodePlayerAlreadyConnected   ErrorCode = "PLAYER_ALREADY_CONNECTED"

	// spectators
	CodeSpectatorNotAllowed ErrorCode = "SPECTATOR_NOT_ALLOWED"
	CodeTooManySpectators   ErrorCode = "TOO_MANY_SPECTATORS"
	CodeNotASpectator       ErrorCode = "NOT_A_SPECTATOR"
	CodeSpectatorJoinFailed ErrorCode = "SPECTATOR_JOIN_FAILED"

	// server
	CodeInternalError      ErrorCode = "INTERNAL_ERROR"
	CodeStorageError       ErrorCode = "STORAGE_ERROR"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

var errorDescriptions = map[ErrorCode]string{
	CodeUnauthorized:              "Access denied. Authentication credentials are missing or invalid.",
	CodeInvalidToken:              "The authentication token is invalid, malformed, or has expired. Please obtain a new token.",
	CodeAuthenticationRequired:    "This operation requires authentication. Please provide valid credentials.",
	CodeInvalidAppID:              "The provided application ID is not recognized. Verify your app ID is correct.",
	CodeAppIDExpired:              "The application ID has expired. Please renew your application registration.",
	CodeAppIDRevoked:              "The application ID has been revoked. Contact the administrator for assistance.",
	CodeAppIDSuspended:            "The application ID has been suspended. Contact the administrator for assistance.",
	CodeMissingAppID:              "Application ID is required but was not provided. Include your app ID in the request.",
	CodeAuthenticationTimeout:     "Authentication took too long to complete. Please try again.",
	CodeSDKVersionUnsupported:     "The SDK version you are using is no longer supported. Please upgrade to the latest version.",
	CodeUnsupportedGameDataFormat: "The requested game data format is not supported by this server. Falling back to JSON encoding.",

	CodeInvalidInput:      "The provided input is invalid or malformed. Check your request parameters.",
	CodeInvalidGameName:   "The game name is invalid. Game names must be non-empty and follow naming requirements.",
	CodeInvalidRoomCode:   "The room code is invalid or malformed. Room codes must follow the required format.",
	CodeInvalidPlayerName: "The player name is invalid. Player names must be non-empty and meet length requirements.",
	CodeInvalidMaxPlayers: "The maximum player count is invalid. It must be a positive number within allowed limits.",
	CodeMessageTooLarge:   "The message size exceeds the maximum allowed limit. Please send a smaller message.",

	CodeRoomNotFound:            "The requested room could not be found. It may have been closed or the code is incorrect.",
	CodeRoomFull:                "The room has reached its maximum player capacity. Try joining a different room.",
	CodeAlreadyInRoom:           "You are already in a room. Leave the current room before joining another.",
	CodeNotInRoom:               "You are not currently in any room. Join a room before performing this action.",
	CodeRoomCreationFailed:      "Failed to create the room. Please try again or contact support if the issue persists.",
	CodeMaxRoomsPerGameExceeded: "The maximum number of rooms for this game has been reached. Please try again later.",
	CodeInvalidRoomState:        "The room is in an invalid state for this operation. Try refreshing or rejoining the room.",

	CodeAuthorityNotSupported: "Authority features are not enabled on this server. Check your server configuration.",
	CodeAuthorityConflict:     "Another client has already claimed authority. Only one client can have authority at a time.",
	CodeAuthorityDenied:       "You do not have permission to claim authority in this room.",

	CodeRateLimitExceeded:  "Too many requests in a short time. Please slow down and try again later.",
	CodeTooManyConnections: "You have too many active connections. Close some connections before opening new ones.",

	CodeReconnectionFailed:       "Failed to reconnect to the room. The session may have expired or the room may be closed.",
	CodeReconnectionTokenInvalid: "The reconnection token is invalid or malformed. You may need to join the room again.",
	CodeReconnectionExpired:      "The reconnection window has expired. You must join the room again as a new player.",
	CodePlayerAlreadyConnected:   "This player is already connected to the room from another session.",

	CodeSpectatorNotAllowed: "Spectator mode is not enabled for this room. Only players can join.",
	CodeTooManySpectators:   "The room has reached its maximum spectator capacity. Try again later.",
	CodeNotASpectator:       "You are not a spectator in this room. This action is only available to spectators.",
	CodeSpectatorJoinFailed: "Failed to join as a spectator. The room may be full or spectating may be disabled.",

	CodeInternalError:      "An internal server error occurred. Please try again or contact support if the issue persists.",
	CodeStorageError:       "A storage error occurred while processing your request. Please try again later.",
	CodeServiceUnavailable: "The service is temporarily unavailable. Please try again in a few moments.",
}

// Description returns a human-readable explanation suitable for end users.
// Unknown codes return an empty string.
func (c ErrorCode) Description() string {
	return errorDescriptions[c]
}

func (c ErrorCode) valid() bool {
	_, ok := errorDescriptions[c]
	return ok
}

func (c ErrorCode) String() string { return string(c) }

func (c *ErrorCode) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, "error code", c)
}

// ErrorCodes returns every known code, in no particular order.
// Mostly useful for exhaustive tests and documentation tooling.
func ErrorCodes() []ErrorCode {
	codes := make([]ErrorCode, 0, len(errorDescriptions))
	for c := range errorDescriptions {
		codes = append(codes, c)
	}
	return codes
}
