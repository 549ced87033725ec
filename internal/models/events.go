package models

// EventType names an outbound real-time event.
type EventType string

const (
	EventDocumentUpdate EventType = "document_update"
	EventMessageUpdate  EventType = "message_update"
)

// Event is the JSON envelope pushed to authenticated connections.
type Event struct {
	Type           EventType `json:"type"`
	Document       *Document `json:"document,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Message        *Message  `json:"message,omitempty"`
}

func DocumentEvent(doc *Document) Event {
	return Event{Type: EventDocumentUpdate, Document: doc}
}

func MessageEvent(msg *Message) Event {
	return Event{Type: EventMessageUpdate, ConversationID: msg.ConversationID, Message: msg}
}
