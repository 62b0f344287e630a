package wire

// Signifiers for messages sent from a game client to the server.
const (
	Login                 = 1
	CreateAccount         = 2
	AddToGameSessionQueue = 3
	PlayOnBoard           = 4
	UpdateBoard           = 5
	ChatMessage           = 6
	AddToObserverQueue    = 7
	LeaveSession          = 8
	LeaveServer           = 9
	SendRecord            = 10
	RecordSendingDone     = 11
)

// Signifiers for messages sent from the server to a game client.
const (
	LoginResponse           = 101
	CreateResponse          = 102
	GameSessionStarted      = 103
	OpponentPlayed          = 104
	UpdateBoardOnClientSide = 105
	VerifyConnection        = 106
	MessageToClient         = 107
	UpdateSessions          = 108
	ConfirmObserver         = 109
	PlayerDisconnected      = 110
	SendRecording           = 111
	QueueEndOfRecord        = 112
	QueueStartOfRecordings  = 113
	QueueEndOfRecordings    = 114
	KickPlayer              = 115
	ConnectionLost          = 116
)

// Response codes carried in the second field of a LoginResponse message.
const (
	LoginSuccess = 1001
	// LoginWrongNameAndPassword is part of the client's response namespace but
	// is never produced: a name that matches no account is always reported as
	// LoginWrongName, even when the password is also wrong.
	LoginWrongNameAndPassword = 1002
	LoginWrongName            = 1003
	LoginWrongPassword        = 1004
	LoginAlreadyLoggedOn      = 1005
	LoginBanned               = 1006
)

// Response codes carried in the second field of a CreateResponse message.
const (
	CreateSuccess       = 10001
	CreateUsernameTaken = 10002
)
