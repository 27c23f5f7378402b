package messages

import "time"

type Sender string

const (
	SenderUser   Sender = "user"
	SenderAvatar Sender = "avatar"
	SenderSystem Sender = "system"
)

// Message is a single chat log entry. It is never mutated after it has been
// appended to a [Log].
type Message struct {
	ID        string
	Sender    Sender
	Text      string
	Timestamp time.Time
}

func NewUserMessage(text string) Message   { return Message{Sender: SenderUser, Text: text} }
func NewAvatarMessage(text string) Message { return Message{Sender: SenderAvatar, Text: text} }
func NewSystemMessage(text string) Message { return Message{Sender: SenderSystem, Text: text} }
