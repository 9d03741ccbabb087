package messages

// ChatSend is sent by a client to post a chat message to the session.
type ChatSend struct {
	Text string
}

// ChatSync is broadcast by the relay for every accepted chat message.
// SentAt is the relay's receive timestamp in Unix milliseconds.
type ChatSync struct {
	SenderId string
	Nickname string
	Text     string
	SentAt   int64
}
