package models

// ChannelKind tells the router what sort of context a message arrived in
type ChannelKind string

const (
	ChannelText   ChannelKind = "text"
	ChannelThread ChannelKind = "thread"
	ChannelOther  ChannelKind = "other"
)

// IncomingMessage is a platform message reduced to what routing needs
type IncomingMessage struct {
	ID          string      `json:"id"`
	AuthorID    string      `json:"author_id"`
	AuthorName  string      `json:"author_name"`
	AuthorLabel string      `json:"author_label"` // as shown to the assistant, e.g. "name#1234"
	AuthorIsBot bool        `json:"author_is_bot"`
	ChannelID   string      `json:"channel_id"`
	ChannelName string      `json:"channel_name,omitempty"`
	ChannelKind ChannelKind `json:"channel_kind"`
	ParentID    string      `json:"parent_id,omitempty"`
	Content     string      `json:"content"`
}

// InThread reports whether the message was posted inside a thread
func (m IncomingMessage) InThread() bool {
	return m.ChannelKind == ChannelThread
}

// Target is where a reply is delivered: a channel or a thread linked to one
type Target struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	Name     string `json:"name,omitempty"`
	IsThread bool   `json:"is_thread"`
}

// ChannelTarget builds the target for replying in place
func ChannelTarget(msg IncomingMessage) Target {
	return Target{
		ID:       msg.ChannelID,
		ParentID: msg.ParentID,
		Name:     msg.ChannelName,
		IsThread: msg.InThread(),
	}
}
