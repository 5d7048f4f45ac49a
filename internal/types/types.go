package types

// Client -> server message types.
const (
	MsgCreate       = "create"
	MsgJoin         = "join"
	MsgLeave        = "leave"
	MsgClick        = "click"
	MsgReadyRematch = "ready_rematch"
)

// Server -> client message types.
const (
	MsgRoomCreated    = "room_created"
	MsgOpponentJoined = "opponent_joined"
	MsgCountdown      = "countdown"
	MsgGameStart      = "game_start"
	MsgBallSpawn      = "ball_spawn"
	MsgBallResult     = "ball_result"
	MsgTimeUpdate     = "time_update"
	MsgGameEnd        = "game_end"
	MsgRematchStart   = "rematch_start"
	MsgOpponentReady  = "opponent_ready"
	MsgOpponentLeft   = "opponent_left"
	MsgError          = "error"
)

const (
	ClickedByPlayer1 = "player1"
	ClickedByPlayer2 = "player2"
	ClickedByNone    = "none"
)

// ClientMessage is the union of every client -> server payload.
type ClientMessage struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode,omitempty"`
	Nickname string `json:"nickname,omitempty"`
	BallID   uint32 `json:"ballId,omitempty"` // click only; 0 means the outstanding ball
}

type RoomCreated struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode"`
}

type OpponentJoined struct {
	Type     string `json:"type"`
	Nickname string `json:"nickname"`
}

type Countdown struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type GameStart struct {
	Type     string  `json:"type"`
	Duration float64 `json:"duration"` // seconds
}

type BallSpawn struct {
	Type      string  `json:"type"`
	ID        uint32  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	IsRed     bool    `json:"isRed"`
	Size      float64 `json:"size"`
	TimeLimit float64 `json:"timeLimit"` // seconds
}

type BallResult struct {
	Type      string    `json:"type"`
	BallID    uint32    `json:"ballId"`
	ClickedBy string    `json:"clickedBy"`
	Scores    [2]uint32 `json:"scores"`
}

type TimeUpdate struct {
	Type     string  `json:"type"`
	TimeLeft float64 `json:"timeLeft"` // seconds
}

type GameEnd struct {
	Type           string `json:"type"`
	Result         string `json:"result"`
	MyScore        uint32 `json:"myScore"`
	OpponentScore  uint32 `json:"opponentScore"`
	WinnerNickname string `json:"winnerNickname,omitempty"`
}

// Signal covers the payload-less messages: rematch_start, opponent_ready, opponent_left.
type Signal struct {
	Type string `json:"type"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewError(msg string) Error { return Error{Type: MsgError, Message: msg} }
