package matrix

import (
	"testing"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

func textEvent(sender id.UserID, room id.RoomID, content *event.MessageEventContent) *event.Event {
	return &event.Event{
		Sender:  sender,
		RoomID:  room,
		Type:    event.EventMessage,
		Content: event.Content{Parsed: content},
	}
}

func TestClient_Accept(t *testing.T) {
	c := &Client{config: Config{
		UserID: "@lachu:example.org",
		Rooms:  []string{"!home:example.org"},
	}}

	edit := &event.MessageEventContent{MsgType: event.MsgText, Body: "* fixed"}
	edit.SetEdit("$original")

	tests := []struct {
		name string
		evt  *event.Event
		want bool
	}{
		{
			name: "text from a user in a configured room",
			evt:  textEvent("@alice:example.org", "!home:example.org", &event.MessageEventContent{MsgType: event.MsgText, Body: "hi"}),
			want: true,
		},
		{
			name: "own message",
			evt:  textEvent("@lachu:example.org", "!home:example.org", &event.MessageEventContent{MsgType: event.MsgText, Body: "hi"}),
		},
		{
			name: "notice",
			evt:  textEvent("@alice:example.org", "!home:example.org", &event.MessageEventContent{MsgType: event.MsgNotice, Body: "hi"}),
		},
		{
			name: "image",
			evt:  textEvent("@alice:example.org", "!home:example.org", &event.MessageEventContent{MsgType: event.MsgImage, Body: "cat.png"}),
		},
		{
			name: "edit",
			evt:  textEvent("@alice:example.org", "!home:example.org", edit),
		},
		{
			name: "unconfigured room",
			evt:  textEvent("@alice:example.org", "!elsewhere:example.org", &event.MessageEventContent{MsgType: event.MsgText, Body: "hi"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.accept(tt.evt); got != tt.want {
				t.Errorf("accept = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_Accept_NoRoomFilter(t *testing.T) {
	c := &Client{config: Config{UserID: "@lachu:example.org"}}
	evt := textEvent("@alice:example.org", "!any:example.org", &event.MessageEventContent{MsgType: event.MsgText, Body: "hi"})
	if !c.accept(evt) {
		t.Error("with no configured rooms every room should be accepted")
	}
}
