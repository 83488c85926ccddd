package domain

// Action websocket request action
type Action string

const (
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// ReadMessage websocket action read_message
	ReadMessage Action = "read_message"
	// EditMessage websocket action edit_message
	EditMessage Action = "edit_message"
	// DeleteMessageForMe websocket action delete_for_me
	DeleteMessageForMe Action = "delete_for_me"
	// DeleteMessageForEveryone websocket action delete_for_everyone
	DeleteMessageForEveryone Action = "delete_for_everyone"
	// ReactMessage websocket action react
	ReactMessage Action = "react"
	// UnreactMessage websocket action unreact
	UnreactMessage Action = "unreact"
	// Typing websocket action typing
	Typing Action = "typing"
	// StopTyping websocket action stop_typing
	StopTyping Action = "stop_typing"
)

// Event server pushed realtime event
type Event string

// realtime event vocabulary
const (
	EventNewMessage                Event = "newMessage"
	EventMessageRead               Event = "messageRead"
	EventMessageEdited             Event = "messageEdited"
	EventMessageDeletedForUser     Event = "messageDeletedForUser"
	EventMessageDeletedForEveryone Event = "messageDeletedForEveryone"
	EventMessageReacted            Event = "messageReacted"
	EventMessageReactionRemoved    Event = "messageReactionRemoved"
	EventTyping                    Event = "typing"
	EventStopTyping                Event = "stopTyping"
	EventOnlineUsers               Event = "onlineUsers"
)

// WSRequest client -> server frame
type WSRequest struct {
	Action string `json:"action"`

	To        string `json:"to,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Text      string `json:"text,omitempty"`
	Emoji     string `json:"emoji,omitempty"`

	Image          string `json:"image,omitempty"`
	MimeType       string `json:"mime_type,omitempty"`
	FileName       string `json:"file_name,omitempty"`
	Ciphertext     string `json:"ciphertext,omitempty"`
	MessageType    string `json:"message_type,omitempty"`
	SenderDeviceID int    `json:"sender_device_id,omitempty"`
}

// WSResponse server -> client frame, pushed events reuse it with Action = event name
type WSResponse struct {
	Action  string      `json:"action"`
	Success bool        `json:"success"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Content build the content variant carried by a send request
func (r WSRequest) Content() Content {
	return BuildContent(r.Text, r.Image, r.MimeType, r.FileName, r.Ciphertext, r.MessageType, r.SenderDeviceID)
}

// BuildContent pick the variant from loose transport fields, ciphertext wins, then attachment
func BuildContent(text, url, mimeType, fileName, ciphertext, algorithm string, deviceID int) Content {
	switch {
	case ciphertext != "":
		return EncryptedContent{Ciphertext: ciphertext, Algorithm: algorithm, SenderDeviceID: deviceID}
	case url != "":
		return AttachmentContent{URL: url, MimeType: mimeType, FileName: fileName, Caption: text}
	default:
		return PlaintextContent{Text: text}
	}
}
