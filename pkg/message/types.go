package message

// Inbound is one message delivered by the transport, before any filtering.
type Inbound struct {
	ID             string   `json:"id,omitempty"`
	SenderID       string   `json:"sender_id"`
	Envelope       Envelope `json:"envelope"`
	SelfOriginated bool     `json:"self_originated,omitempty"`
	Broadcast      bool     `json:"broadcast,omitempty"`
}

// Envelope carries the payload shapes a sender may use for text.
type Envelope struct {
	Conversation string        `json:"conversation,omitempty"`
	ExtendedText *ExtendedText `json:"extended_text,omitempty"`
	Image        *Image        `json:"image,omitempty"`
}

type ExtendedText struct {
	Text string `json:"text"`
}

type Image struct {
	Caption string `json:"caption,omitempty"`
}

// Normalized is the sender plus the single text extracted from an envelope.
type Normalized struct {
	SenderID string `json:"sender_id"`
	Text     string `json:"text"`
}

type OutboundKind string

const (
	OutboundText  OutboundKind = "text"
	OutboundMedia OutboundKind = "media"
)

// Outbound is one reply unit. Text units use Body; media units use URL and Caption.
type Outbound struct {
	Kind    OutboundKind `json:"kind"`
	Body    string       `json:"body,omitempty"`
	URL     string       `json:"url,omitempty"`
	Caption string       `json:"caption,omitempty"`
}

func Text(body string) Outbound {
	return Outbound{Kind: OutboundText, Body: body}
}

func Media(url string, caption string) Outbound {
	return Outbound{Kind: OutboundMedia, URL: url, Caption: caption}
}

// Ignored reports whether the message must be dropped before normalization:
// echoes of the bot's own sends and status broadcasts never get a reply.
func (m Inbound) Ignored() bool {
	return m.SelfOriginated || m.Broadcast
}
