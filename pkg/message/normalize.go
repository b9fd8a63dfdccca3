package message

// Normalize extracts the text of an inbound message.
//
// The first non-empty shape wins: plain conversation text, then extended text,
// then an image caption. An empty Text means there is nothing to answer.
func Normalize(m Inbound) Normalized {
	return Normalized{SenderID: m.SenderID, Text: envelopeText(m.Envelope)}
}

func envelopeText(env Envelope) string {
	if env.Conversation != "" {
		return env.Conversation
	}
	if env.ExtendedText != nil && env.ExtendedText.Text != "" {
		return env.ExtendedText.Text
	}
	if env.Image != nil && env.Image.Caption != "" {
		return env.Image.Caption
	}

	return ""
}
