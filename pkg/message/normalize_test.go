package message

import "testing"

func TestNormalizeSelectionOrder(t *testing.T) {
	tests := []struct {
		name     string
		envelope Envelope
		want     string
	}{
		{name: "conversation only", envelope: Envelope{Conversation: "salut"}, want: "salut"},
		{
			name: "conversation wins over extended text and caption",
			envelope: Envelope{
				Conversation: "bonjour",
				ExtendedText: &ExtendedText{Text: "quoted"},
				Image:        &Image{Caption: "caption"},
			},
			want: "bonjour",
		},
		{
			name:     "extended text before caption",
			envelope: Envelope{ExtendedText: &ExtendedText{Text: "info Café Test"}, Image: &Image{Caption: "caption"}},
			want:     "info Café Test",
		},
		{
			name:     "empty extended text falls through to caption",
			envelope: Envelope{ExtendedText: &ExtendedText{}, Image: &Image{Caption: "chercher pizza"}},
			want:     "chercher pizza",
		},
		{name: "image without caption", envelope: Envelope{Image: &Image{}}, want: ""},
		{name: "empty envelope", envelope: Envelope{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(Inbound{SenderID: "212600000000@s.whatsapp.net", Envelope: tt.envelope})
			if got.Text != tt.want {
				t.Fatalf("Normalize text = %q, want %q", got.Text, tt.want)
			}
			if got.SenderID != "212600000000@s.whatsapp.net" {
				t.Fatalf("Normalize sender = %q", got.SenderID)
			}
		})
	}
}

func TestIgnored(t *testing.T) {
	if (Inbound{SenderID: "a"}).Ignored() {
		t.Fatal("plain message should not be ignored")
	}
	if !(Inbound{SelfOriginated: true}).Ignored() {
		t.Fatal("self-originated message should be ignored")
	}
	if !(Inbound{Broadcast: true}).Ignored() {
		t.Fatal("broadcast message should be ignored")
	}
}

func TestOutboundConstructors(t *testing.T) {
	text := Text("hello")
	if text.Kind != OutboundText || text.Body != "hello" {
		t.Fatalf("Text = %+v", text)
	}

	media := Media("https://example.com/a.jpg", "Café Test")
	if media.Kind != OutboundMedia || media.URL != "https://example.com/a.jpg" || media.Caption != "Café Test" {
		t.Fatalf("Media = %+v", media)
	}
}
