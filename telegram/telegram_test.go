package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CFPurge/notify"
	"CFPurge/purge"
	"CFPurge/zone"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []string
	buttons  []string
}

func (f *fakeSender) Send(_ context.Context, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeSender) SendWithButtons(_ context.Context, msg string, buttons [][]Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	for _, row := range buttons {
		for _, b := range row {
			f.buttons = append(f.buttons, b.CallbackData)
		}
	}
	return nil
}

func (f *fakeSender) StartListener(ctx context.Context, _ CallbackFunc, _ MessageFunc) error {
	<-ctx.Done()
	return nil
}

func (f *fakeSender) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

type purgeCall struct {
	targets  []purge.Target
	template string
}

type fakePurger struct {
	mu      sync.Mutex
	calls   []purgeCall
	ctxErrs []error
}

func (f *fakePurger) Purge(ctx context.Context, targets []purge.Target, template string) purge.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, purgeCall{targets: targets, template: template})
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return purge.Result{Success: true, OperationID: "op"}
}

func (f *fakePurger) lastCtxErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ctxErrs) == 0 {
		return nil
	}
	return f.ctxErrs[len(f.ctxErrs)-1]
}

func (f *fakePurger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeZones struct {
	res         zone.Resolution
	err         error
	invalidated int
}

func (f *fakeZones) ResolveCurrent(context.Context) (zone.Resolution, error) { return f.res, f.err }
func (f *fakeZones) InvalidateCurrent(context.Context) error {
	f.invalidated++
	return nil
}

func newTestHandler() (*CommandHandler, *fakeSender, *fakePurger, *fakeZones) {
	sender := &fakeSender{}
	purger := &fakePurger{}
	zones := &fakeZones{}
	return NewCommandHandler(purger, zones, sender, 100, nil), sender, purger, zones
}

func TestPurgeCommandTargets(t *testing.T) {
	tests := []struct {
		name         string
		command      string
		args         string
		wantKind     purge.Kind
		wantPaths    []string
		wantPageID   string
		wantTemplate string
	}{
		{
			name:         "single url",
			command:      "purge",
			args:         "https://example.com/about",
			wantKind:     purge.KindSingleFile,
			wantPaths:    []string{"https://example.com/about"},
			wantTemplate: "CloudFlare cache has been purged for: https://example.com/about",
		},
		{
			name:      "many urls",
			command:   "purge",
			args:      "/a.css, /b.js /c.png",
			wantKind:  purge.KindManyFiles,
			wantPaths: []string{"/a.css", "/b.js", "/c.png"},
		},
		{name: "page", command: "purgepage", args: " 42 ", wantKind: purge.KindPage, wantPageID: "42"},
		{name: "css", command: "purgecss", wantKind: purge.KindCSS},
		{name: "js", command: "purgejs", wantKind: purge.KindJavaScript},
		{name: "images", command: "purgeimages", wantKind: purge.KindImages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, sender, purger, _ := newTestHandler()
			h.handleCommand(context.Background(), tt.command, tt.args, &tgbotapi.User{UserName: "alice"})

			require.Len(t, purger.calls, 1)
			call := purger.calls[0]
			require.Len(t, call.targets, 1)
			assert.Equal(t, tt.wantKind, call.targets[0].Kind())
			if tt.wantPaths != nil {
				assert.Equal(t, tt.wantPaths, call.targets[0].Paths())
			}
			assert.Equal(t, tt.wantPageID, call.targets[0].PageID())
			assert.Equal(t, tt.wantTemplate, call.template)

			msgs := sender.snapshot()
			require.NotEmpty(t, msgs)
			assert.Contains(t, msgs[0], "@alice")
		})
	}
}

func TestPurgeCommandUsage(t *testing.T) {
	tests := []struct {
		command string
		args    string
	}{
		{command: "purge", args: ""},
		{command: "purge", args: " , "},
		{command: "purgepage", args: ""},
		{command: "purgepage", args: "1 2"},
	}

	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.args, func(t *testing.T) {
			h, sender, purger, _ := newTestHandler()
			h.handleCommand(context.Background(), tt.command, tt.args, nil)

			assert.Zero(t, purger.callCount())
			msgs := sender.snapshot()
			require.Len(t, msgs, 1)
			assert.True(t, strings.HasPrefix(msgs[0], "Usage:"))
		})
	}
}

func TestPurgeAllAsksForConfirmation(t *testing.T) {
	h, sender, purger, _ := newTestHandler()
	h.handleCommand(context.Background(), "purgeall", "", &tgbotapi.User{ID: 7})

	assert.Zero(t, purger.callCount())
	assert.Equal(t, []string{CallbackPurgeAllConfirm, CallbackPurgeAllCancel}, sender.buttons)
	assert.Contains(t, sender.snapshot()[0], "id:7")
}

func TestZoneCommand(t *testing.T) {
	h, sender, _, zones := newTestHandler()
	zones.res = zone.Resolution{
		Domain:    "example.com",
		ZoneID:    "zone123",
		Ready:     true,
		Cached:    true,
		FetchedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	h.handleCommand(context.Background(), "zone", "", nil)
	msgs := sender.snapshot()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Zone ID: zone123")
	assert.Contains(t, msgs[0], "Source: cache")
	assert.Contains(t, msgs[0], "2024-05-01T12:00:00Z")

	h.handleCommand(context.Background(), "zone", "forget", nil)
	assert.Equal(t, 1, zones.invalidated)

	zones.err = errors.New("boom")
	h.handleCommand(context.Background(), "zone", "", nil)
	assert.Contains(t, sender.snapshot()[2], "Zone lookup failed: boom")
}

func commandMessage(chatID int64, command string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     command,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command)}},
	}
}

func TestHandleMessageFiltersChat(t *testing.T) {
	h, sender, purger, _ := newTestHandler()
	ctx := context.Background()

	h.HandleMessage(ctx, nil)
	h.HandleMessage(ctx, commandMessage(999, "/purgecss"))
	h.HandleMessage(ctx, &tgbotapi.Message{Text: "/purgecss"})
	h.HandleMessage(ctx, &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}, Text: "hello"})

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, purger.callCount())
	assert.Empty(t, sender.snapshot())
}

func TestHandleMessageWithoutChatIDAcceptsNothing(t *testing.T) {
	sender := &fakeSender{}
	purger := &fakePurger{}
	h := NewCommandHandler(purger, &fakeZones{}, sender, 0, nil)

	for _, cmd := range []string{"/purgecss", "/purgejs", "/purgeimages", "/purge", "/purgeall"} {
		h.HandleMessage(context.Background(), commandMessage(999, cmd))
		h.HandleMessage(context.Background(), commandMessage(0, cmd))
	}

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, purger.callCount())
	assert.Empty(t, sender.snapshot())
}

func TestHandleMessageRunsCommand(t *testing.T) {
	h, _, purger, _ := newTestHandler()

	h.HandleMessage(context.Background(), commandMessage(100, "/purgecss"))
	assert.Eventually(t, func() bool { return purger.callCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestHandleMessagePassesListenerContext(t *testing.T) {
	h, _, purger, _ := newTestHandler()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h.HandleMessage(ctx, commandMessage(100, "/purgecss"))
	require.Eventually(t, func() bool { return purger.callCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, purger.lastCtxErr(), context.Canceled)
}

func TestSinkFormatsBySeverity(t *testing.T) {
	sender := &fakeSender{}
	sink := Sink{Sender: sender}

	require.NoError(t, sink.Notify(context.Background(), "done", notify.SeverityGood))
	require.NoError(t, sink.Notify(context.Background(), "failed", notify.SeverityError))
	assert.Equal(t, []string{"✅ done", "⚠️ failed"}, sender.snapshot())

	assert.NoError(t, Sink{}.Notify(context.Background(), "x", notify.SeverityGood))
}

func TestSplitTelegramText(t *testing.T) {
	assert.Equal(t, []string{""}, splitTelegramText("  ", 10))
	assert.Equal(t, []string{"short"}, splitTelegramText("short", 10))

	parts := splitTelegramText("line one\nline two\nline three", 12)
	assert.Equal(t, []string{"line one", "line two", "line three"}, parts)

	parts = splitTelegramText(strings.Repeat("x", 25), 10)
	assert.Equal(t, []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)}, parts)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList(" a, b\nc ,"))
	assert.Empty(t, splitList(""))
}
