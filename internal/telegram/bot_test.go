package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type sent struct {
	chatID int64
	text   string
}

type fakeAPI struct {
	mu       sync.Mutex
	updates  chan tgbotapi.Update
	messages []sent
	requests int
	stopped  bool
	sendErr  error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 8)}
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	m := c.(tgbotapi.MessageConfig)
	f.messages = append(f.messages, sent{chatID: m.ChatID, text: m.Text})
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) history() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.messages...)
}

type echoProcessor struct{}

func (echoProcessor) ProcessCommand(_ context.Context, input string) (string, error) {
	if input == "/fail" {
		return "", errors.New("boom")
	}
	return "echo " + input, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func message(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: text}}
}

func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestRun_AnswersAcceptedChats(t *testing.T) {
	api := newFakeAPI()
	bot := NewWithAPI(api, Config{AcceptedChatIDs: []int64{42}}, echoProcessor{}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	api.updates <- message(7, "/ls")
	api.updates <- message(42, "/ls Home")
	api.updates <- message(42, "/fail")

	eventually(t, time.Second, 10*time.Millisecond, func() bool {
		return len(api.history()) == 2
	}, "replies not sent")

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := api.history()
	if got[0] != (sent{42, "echo /ls Home"}) {
		t.Errorf("first reply = %+v", got[0])
	}
	if got[1] != (sent{42, "Error: boom"}) {
		t.Errorf("second reply = %+v", got[1])
	}
	if api.requests != 1 {
		t.Errorf("command registration requests = %d", api.requests)
	}
	if !api.stopped {
		t.Error("updates not stopped")
	}
}

func TestSendReminder_AllChats(t *testing.T) {
	api := newFakeAPI()
	bot := NewWithAPI(api, Config{AcceptedChatIDs: []int64{1, 2, 1}}, echoProcessor{}, quietLogger())

	if err := bot.SendReminder(context.Background(), "call mom"); err != nil {
		t.Fatalf("SendReminder: %v", err)
	}
	got := api.history()
	if len(got) != 2 || got[0] != (sent{1, "Reminder: call mom"}) || got[1].chatID != 2 {
		t.Errorf("sent = %+v", got)
	}
}

func TestSendReminder_Errors(t *testing.T) {
	bot := NewWithAPI(newFakeAPI(), Config{}, echoProcessor{}, quietLogger())
	if err := bot.SendReminder(context.Background(), "x"); err == nil {
		t.Error("expected error without chats")
	}

	api := newFakeAPI()
	api.sendErr = errors.New("forbidden")
	bot = NewWithAPI(api, Config{AcceptedChatIDs: []int64{1}}, echoProcessor{}, quietLogger())
	if err := bot.SendReminder(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "forbidden") {
		t.Errorf("err = %v", err)
	}
}

func TestNotifyGitFailure(t *testing.T) {
	api := newFakeAPI()
	bot := NewWithAPI(api, Config{AcceptedChatIDs: []int64{9}}, echoProcessor{}, quietLogger())

	bot.NotifyGitFailure("push", errors.New("rejected"))
	got := api.history()
	if len(got) != 1 || !strings.HasPrefix(got[0].text, "Git op fail, manual fix will be needed (push)") {
		t.Errorf("sent = %+v", got)
	}
}

func TestSendEmptyReply(t *testing.T) {
	api := newFakeAPI()
	bot := NewWithAPI(api, Config{AcceptedChatIDs: []int64{1}}, echoProcessor{}, quietLogger())
	if err := bot.send(1, "  "); err != nil {
		t.Fatal(err)
	}
	if got := api.history(); len(got) != 1 || got[0].text != "<empty>" {
		t.Errorf("sent = %+v", got)
	}
}

func TestSplit(t *testing.T) {
	lines := strings.Repeat("0123456789\n", 10) // 110 bytes
	parts := split(lines, 50)
	if strings.Join(parts, "") != lines {
		t.Fatal("split lost content")
	}
	for _, p := range parts {
		if len(p) > 50 || !strings.HasSuffix(p, "\n") {
			t.Errorf("part %q", p)
		}
	}

	runes := strings.Repeat("ñ", 30) // 60 bytes, no newlines
	parts = split(runes, 25)
	if strings.Join(parts, "") != runes {
		t.Fatal("split lost content")
	}
	for _, p := range parts {
		if len(p) > 25 || !strings.HasPrefix(p, "ñ") {
			t.Errorf("part %q cuts a rune", p)
		}
	}
}
