package models

import "github.com/google/uuid"

// Conversation is a decrypted chat conversation list entry.
type Conversation struct {
	ID                   uuid.UUID     `json:"uuid"`
	OwnerID              uuid.UUID     `json:"ownerId"`
	Name                 string        `json:"name"`
	Participants         []Participant `json:"participants"`
	LastMessage          string        `json:"lastMessage"`
	LastMessageSender    uuid.UUID     `json:"lastMessageSender"`
	LastMessageTimestamp int64         `json:"lastMessageTimestamp"`
	LastMessageID        uuid.UUID     `json:"lastMessageUUID"`
	CreatedTimestamp     int64         `json:"createdTimestamp"`
}

// MessageReply references the message a chat message answers.
type MessageReply struct {
	ID       uuid.UUID `json:"uuid"`
	SenderID uuid.UUID `json:"senderId"`
	Message  string    `json:"message"`
}

// ChatMessage is a decrypted chat message.
type ChatMessage struct {
	ID              uuid.UUID     `json:"uuid"`
	ConversationID  uuid.UUID     `json:"conversation"`
	SenderID        uuid.UUID     `json:"senderId"`
	SenderEmail     string        `json:"senderEmail"`
	Body            string        `json:"message"`
	ReplyTo         *MessageReply `json:"replyTo,omitempty"`
	EmbedDisabled   bool          `json:"embedDisabled"`
	Edited          bool          `json:"edited"`
	EditedTimestamp int64         `json:"editedTimestamp"`
	SentTimestamp   int64         `json:"sentTimestamp"`
}

// RemoteConversation is the wire form of Conversation; Name and LastMessage are ciphertext.
type RemoteConversation struct {
	ID                   uuid.UUID     `json:"uuid"`
	OwnerID              uuid.UUID     `json:"ownerId"`
	Name                 string        `json:"name"`
	Participants         []Participant `json:"participants"`
	LastMessage          string        `json:"lastMessage"`
	LastMessageSender    uuid.UUID     `json:"lastMessageSender"`
	LastMessageTimestamp int64         `json:"lastMessageTimestamp"`
	LastMessageID        uuid.UUID     `json:"lastMessageUUID"`
	CreatedTimestamp     int64         `json:"createdTimestamp"`
}

// RemoteMessageReply is the wire form of MessageReply; Message is ciphertext.
type RemoteMessageReply struct {
	ID       uuid.UUID `json:"uuid"`
	SenderID uuid.UUID `json:"senderId"`
	Message  string    `json:"message"`
}

// RemoteChatMessage is the wire form of ChatMessage; Message is ciphertext.
type RemoteChatMessage struct {
	ID              uuid.UUID           `json:"uuid"`
	ConversationID  uuid.UUID           `json:"conversation"`
	SenderID        uuid.UUID           `json:"senderId"`
	SenderEmail     string              `json:"senderEmail"`
	Message         string              `json:"message"`
	ReplyTo         *RemoteMessageReply `json:"replyTo,omitempty"`
	EmbedDisabled   bool                `json:"embedDisabled"`
	Edited          bool                `json:"edited"`
	EditedTimestamp int64               `json:"editedTimestamp"`
	SentTimestamp   int64               `json:"sentTimestamp"`
}

// OnlineStatus is a participant's presence in a conversation.
type OnlineStatus struct {
	UserID        uuid.UUID `json:"userId"`
	LastActive    int64     `json:"lastActive"`
	AppearOffline bool      `json:"appearOffline"`
}
