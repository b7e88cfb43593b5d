package types

// Question is one quiz item. Name is the correct answer.
type Question struct {
	Name    string   `json:"name" yaml:"name"`
	Image   string   `json:"image" yaml:"image"`
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// RoomJoined is the payload of roomCreated and roomJoined.
type RoomJoined struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
	IsHost     bool   `json:"isHost"`
}

// PlayerInfo is one roster row of playerListUpdated, in join order.
type PlayerInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	IsHost bool   `json:"isHost"`
	Score  int    `json:"score"`
}

type GameStarted struct {
	TotalQuestions int `json:"totalQuestions"`
}

type NewQuestion struct {
	QuestionNumber int      `json:"questionNumber"`
	TotalQuestions int      `json:"totalQuestions"`
	Image          string   `json:"image"`
	Options        []string `json:"options,omitempty"`
	CorrectAnswer  string   `json:"correctAnswer"`
}

type AnswerResult struct {
	IsCorrect     bool   `json:"isCorrect"`
	CorrectAnswer string `json:"correctAnswer"`
	Points        int    `json:"points"`
	TotalScore    int    `json:"totalScore"`
}

// Standing is one scoreboard row, used by scoresUpdated and gameOver.
type Standing struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Reveal is the payload of allAnswered and timeExpired.
type Reveal struct {
	CorrectAnswer string `json:"correctAnswer"`
}

type GameOver struct {
	Scores []Standing `json:"scores"`
}

type PromotedToHost struct {
	RoomCode string `json:"roomCode"`
}

type Error struct {
	Message string `json:"message"`
}
