package model

import "time"

// ChatState is the lifecycle state of a support chat session. Transitions
// are monotonic: bot -> waiting -> active -> closed, never backwards.
type ChatState string

const (
	ChatStateBot     ChatState = "bot"
	ChatStateWaiting ChatState = "waiting"
	ChatStateActive  ChatState = "active"
	ChatStateClosed  ChatState = "closed"
)

func (s ChatState) rank() int {
	switch s {
	case ChatStateBot:
		return 0
	case ChatStateWaiting:
		return 1
	case ChatStateActive:
		return 2
	case ChatStateClosed:
		return 3
	}
	return -1
}

// Valid reports whether s is one of the known chat states.
func (s ChatState) Valid() bool { return s.rank() >= 0 }

// CanTransition reports whether moving from s to the given state respects
// the monotonic lifecycle. Staying in place is not a transition.
func (s ChatState) CanTransition(to ChatState) bool {
	if !s.Valid() || !to.Valid() {
		return false
	}
	return to.rank() > s.rank()
}

// ChatSender identifies who authored a chat message.
type ChatSender string

const (
	ChatSenderCustomer ChatSender = "customer"
	ChatSenderAgent    ChatSender = "agent"
	ChatSenderBot      ChatSender = "bot"
)

// ChatSession is a support conversation between a customer and, once joined,
// a back-office agent.
type ChatSession struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	CustomerName string    `json:"customerName"`
	AgentName    string    `json:"agentName,omitempty"`
	State        ChatState `json:"state"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ChatMessage is one message in a chat session.
type ChatMessage struct {
	ID        int64      `json:"id"`
	ChatID    string     `json:"chatId"`
	Sender    ChatSender `json:"sender"`
	Body      string     `json:"body"`
	ImageURL  string     `json:"imageUrl,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
