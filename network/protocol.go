package network

// Inbound events.
const (
	EventCreateRoom      = "createRoom"
	EventJoinRoom        = "joinRoom"
	EventStartGame       = "startGame"
	EventRequestQuestion = "requestQuestion"
	EventSubmitAnswer    = "submitAnswer"
	EventNextRound       = "nextRound"
	EventPlayerReady     = "playerReady"
	EventGetRooms        = "getRooms"
)

// Outbound events.
const (
	EventConnectionConfirmed = "connectionConfirmed"
	EventRoomCreated         = "roomCreated"
	EventJoinedRoom          = "joinedRoom"
	EventPlayerJoined        = "playerJoined"
	EventGameStarted         = "gameStarted"
	EventStartRound          = "startRound"
	EventScoreUpdate         = "scoreUpdate"
	EventProceedToNextRound  = "proceedToNextRound"
	EventGameFinished        = "gameFinished"
	EventWaitingForPlayers   = "waitingForPlayers"
	EventRoomsList           = "roomsList"
	EventPlayerLeft          = "playerLeft"
	EventError               = "error"
)
