package bridge

import (
	"encoding/json"

	"jamalekbot/pkg/message"
)

const (
	frameAuth             = "auth"
	frameConnectionUpdate = "connection.update"
	frameCredsUpdate      = "creds.update"
	frameMessagesUpsert   = "messages.upsert"
	frameSend             = "send"
	frameSendResult       = "send.result"

	broadcastJID = "status@broadcast"

	// statusLoggedOut is the disconnect status the network reports when the
	// linked device was removed.
	statusLoggedOut = 401
)

// frame is the envelope of every message on the bridge socket.
type frame struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type authData struct {
	Creds   json.RawMessage `json:"creds,omitempty"`
	Browser string          `json:"browser,omitempty"`
}

type connectionData struct {
	Connection     string          `json:"connection,omitempty"`
	QR             string          `json:"qr,omitempty"`
	Me             *account        `json:"me,omitempty"`
	LastDisconnect *disconnectInfo `json:"lastDisconnect,omitempty"`
}

type account struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type disconnectInfo struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message,omitempty"`
}

type upsertData struct {
	Type     string        `json:"type,omitempty"`
	Messages []wireMessage `json:"messages"`
}

type wireMessage struct {
	Key     messageKey   `json:"key"`
	Message *wireContent `json:"message,omitempty"`
}

type messageKey struct {
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

type wireContent struct {
	Conversation        string           `json:"conversation,omitempty"`
	ExtendedTextMessage *extendedText    `json:"extendedTextMessage,omitempty"`
	ImageMessage        *imageAttachment `json:"imageMessage,omitempty"`
}

type extendedText struct {
	Text string `json:"text"`
}

type imageAttachment struct {
	URL     string `json:"url,omitempty"`
	Caption string `json:"caption,omitempty"`
}

type sendData struct {
	JID     string      `json:"jid"`
	Content sendContent `json:"content"`
}

type sendContent struct {
	Text    string           `json:"text,omitempty"`
	Image   *imageAttachment `json:"image,omitempty"`
	Caption string           `json:"caption,omitempty"`
}

type sendResultData struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (m wireMessage) inbound() message.Inbound {
	in := message.Inbound{
		ID:             m.Key.ID,
		SenderID:       m.Key.RemoteJID,
		SelfOriginated: m.Key.FromMe,
		Broadcast:      m.Key.RemoteJID == broadcastJID,
	}

	if m.Message == nil {
		return in
	}

	in.Envelope.Conversation = m.Message.Conversation
	if m.Message.ExtendedTextMessage != nil {
		in.Envelope.ExtendedText = &message.ExtendedText{Text: m.Message.ExtendedTextMessage.Text}
	}
	if m.Message.ImageMessage != nil {
		in.Envelope.Image = &message.Image{Caption: m.Message.ImageMessage.Caption}
	}

	return in
}

func outboundContent(unit message.Outbound) sendContent {
	if unit.Kind == message.OutboundMedia {
		return sendContent{
			Image:   &imageAttachment{URL: unit.URL},
			Caption: unit.Caption,
		}
	}

	return sendContent{Text: unit.Body}
}
