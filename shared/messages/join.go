package messages

// JoinRequest is sent by a client after connecting to request joining the session.
type JoinRequest struct {
	Version  string
	Nickname string
}

// KeyValue carries one stored relay value inside the join snapshot.
type KeyValue struct {
	Key     string
	Origin  string
	Payload []byte
}

// JoinAccepted is sent by the relay when a client's join request is accepted.
// Values is the full key/value state at join time so late joiners see the
// world without waiting for the next write to every key.
type JoinAccepted struct {
	UserId      string
	SessionName string
	SweepRate   int
	Values      []KeyValue
	UserIds     []string
	Nicknames   map[string]string
}

// JoinRejected is sent by the relay when a client's join request is rejected.
type JoinRejected struct {
	Reason string
}
