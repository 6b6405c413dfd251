package chat_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sajadtroy/lachu/internal/lachu/chat"
	"github.com/sajadtroy/lachu/internal/lachu/llm"
	"github.com/sajadtroy/lachu/internal/lachu/memory"
)

type fakeReplier struct {
	reply string
	got   []memory.Message
}

func (f *fakeReplier) Reply(_ context.Context, msgs []memory.Message) string {
	f.got = msgs
	return f.reply
}

type fakeHistory struct {
	recent    []memory.Message
	recentErr error
	appendErr error

	limit    int
	key      memory.Key
	appended []memory.Message
}

func (f *fakeHistory) Recent(_ context.Context, key memory.Key, limit int) ([]memory.Message, error) {
	f.key = key
	f.limit = limit
	return f.recent, f.recentErr
}

func (f *fakeHistory) Append(_ context.Context, key memory.Key, msgs ...memory.Message) error {
	f.key = key
	f.appended = append(f.appended, msgs...)
	return f.appendErr
}

func newService(h memory.History, r chat.Replier) *chat.Service {
	return chat.NewService(chat.Config{
		History: h,
		Builder: memory.NewContextBuilder("persona prompt", 0),
		Replier: r,
	})
}

var req = chat.Request{ServerID: "!room:example.org", UserID: "@alice:example.org", Text: "How are you?"}

func TestRespond_DefaultHistoryIsSystemPlusUser(t *testing.T) {
	r := &fakeReplier{reply: "I'm doing well!"}
	s := newService(nil, r)

	got := s.Respond(context.Background(), req)

	if got != "I'm doing well!" {
		t.Errorf("reply = %q", got)
	}
	if len(r.got) != 2 || r.got[0].Role != memory.RoleSystem || r.got[0].Content != "persona prompt" ||
		r.got[1].Role != memory.RoleUser || r.got[1].Content != "How are you?" {
		t.Errorf("context = %+v", r.got)
	}
}

func TestRespond_UsesHistoryAndAppendsExchange(t *testing.T) {
	h := &fakeHistory{recent: []memory.Message{
		{Role: memory.RoleUser, Content: "earlier"},
		{Role: memory.RoleAssistant, Content: "reply"},
	}}
	r := &fakeReplier{reply: "I'm doing well!"}
	s := newService(h, r)

	s.Respond(context.Background(), req)

	if h.limit != memory.DefaultHistoryLimit {
		t.Errorf("history limit = %d, want %d", h.limit, memory.DefaultHistoryLimit)
	}
	if h.key.ServerID != req.ServerID || h.key.UserID != req.UserID {
		t.Errorf("history key = %+v", h.key)
	}
	if len(r.got) != 4 || r.got[1].Content != "earlier" || r.got[3].Content != "How are you?" {
		t.Errorf("context = %+v", r.got)
	}
	if len(h.appended) != 2 ||
		h.appended[0].Role != memory.RoleUser || h.appended[0].Content != "How are you?" ||
		h.appended[1].Role != memory.RoleAssistant || h.appended[1].Content != "I'm doing well!" {
		t.Errorf("appended = %+v", h.appended)
	}
}

func TestRespond_FallbackIsNotRecorded(t *testing.T) {
	for _, fallback := range []string{llm.ShortenMessage, llm.TroubleMessage} {
		h := &fakeHistory{}
		s := newService(h, &fakeReplier{reply: fallback})

		if got := s.Respond(context.Background(), req); got != fallback {
			t.Errorf("reply = %q, want %q", got, fallback)
		}
		if len(h.appended) != 0 {
			t.Errorf("fallback %q was appended to history", fallback)
		}
	}
}

func TestRespond_HistoryFailuresDoNotAffectReply(t *testing.T) {
	h := &fakeHistory{
		recent:    []memory.Message{{Role: memory.RoleUser, Content: "ignored"}},
		recentErr: errors.New("disk on fire"),
		appendErr: errors.New("still on fire"),
	}
	r := &fakeReplier{reply: "ok"}
	s := newService(h, r)

	if got := s.Respond(context.Background(), req); got != "ok" {
		t.Errorf("reply = %q", got)
	}
	if len(r.got) != 2 {
		t.Errorf("failed recall must be treated as empty; context = %+v", r.got)
	}
}
