package staffing

import (
	"context"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obstetric/obstetric/internal/platform/telegram"
)

type fakeReplier struct {
	messages []string
	answers  []string
}

func (f *fakeReplier) SendMessage(_ context.Context, _ int64, text string, _ *telegram.InlineKeyboardMarkup) (*telegram.Message, error) {
	f.messages = append(f.messages, text)
	return &telegram.Message{}, nil
}

func (f *fakeReplier) AnswerCallbackQuery(_ context.Context, _ string, text string) error {
	f.answers = append(f.answers, text)
	return nil
}

func newTestBot(t *testing.T) (*BotHandler, *fixture, *fakeReplier) {
	f := newFixture(t)
	r := &fakeReplier{}
	return NewBotHandler(f.svc, f.directory, r, zerolog.Nop()), f, r
}

func callback(chatID int64, data string) telegram.Update {
	return telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:   "cb-1",
		From: telegram.User{ID: chatID},
		Data: data,
	}}
}

func TestParseCallback(t *testing.T) {
	cases := []struct {
		data   string
		id     int64
		accept bool
		ok     bool
	}{
		{"acc:12", 12, true, true},
		{"rej:7", 7, false, true},
		{"acc:", 0, false, false},
		{"acc:-3", 0, false, false},
		{"del:4", 0, false, false},
	}
	for _, tc := range cases {
		id, accept, ok := parseCallback(tc.data)
		assert.Equal(t, tc.ok, ok, tc.data)
		assert.Equal(t, tc.id, id, tc.data)
		assert.Equal(t, tc.accept, accept, tc.data)
	}
}

func TestBot_StartLinksChat(t *testing.T) {
	b, f, r := newTestBot(t)
	code := "2aBcDeFgHiJkLmNoPqRsTuVwXyZ"
	f.directory[3].LinkCode = &code

	err := b.HandleUpdate(context.Background(), telegram.Update{Message: &telegram.Message{
		Chat: telegram.Chat{ID: 303},
		Text: "/start " + code,
	}})
	require.NoError(t, err)
	require.NotNil(t, f.directory[3].TelegramChatID)
	assert.Equal(t, int64(303), *f.directory[3].TelegramChatID)
	require.Len(t, r.messages, 1)
	assert.Contains(t, r.messages[0], "Pedro Díaz")
}

func TestBot_StartWithUnknownCode(t *testing.T) {
	b, _, r := newTestBot(t)
	err := b.HandleUpdate(context.Background(), telegram.Update{Message: &telegram.Message{
		Chat: telegram.Chat{ID: 303},
		Text: "/start nope",
	}})
	require.NoError(t, err)
	assert.Contains(t, r.messages[0], "no es válido")
}

func TestBot_AcceptInvitation(t *testing.T) {
	b, f, r := newTestBot(t)
	_, err := f.svc.RequestTeam(context.Background(), 1, 1)
	require.NoError(t, err)
	a := f.assignmentFor(t, 4)

	require.NoError(t, b.HandleUpdate(context.Background(), callback(104, "acc:"+itoa(a.ID))))
	assert.Equal(t, ResponseAccepted, f.assignments.store[a.ID].ResponseStatus)
	assert.Equal(t, []string{"Convocatoria aceptada."}, r.answers)
}

func TestBot_RejectInvitation(t *testing.T) {
	b, f, r := newTestBot(t)
	_, err := f.svc.RequestTeam(context.Background(), 1, 1)
	require.NoError(t, err)
	a := f.assignmentFor(t, 6)

	require.NoError(t, b.HandleUpdate(context.Background(), callback(106, "rej:"+itoa(a.ID))))
	assert.Equal(t, ResponseRejected, f.assignments.store[a.ID].ResponseStatus)
	assert.Equal(t, []string{"Convocatoria rechazada."}, r.answers)
}

func TestBot_CallbackFromWrongChat(t *testing.T) {
	b, f, r := newTestBot(t)
	_, err := f.svc.RequestTeam(context.Background(), 1, 1)
	require.NoError(t, err)
	a := f.assignmentFor(t, 4)

	// Chat 105 belongs to staff 5, not the invitee.
	require.NoError(t, b.HandleUpdate(context.Background(), callback(105, "acc:"+itoa(a.ID))))
	assert.Equal(t, ResponsePending, f.assignments.store[a.ID].ResponseStatus)
	assert.Equal(t, []string{"No fue posible registrar su respuesta."}, r.answers)

	require.NoError(t, b.HandleUpdate(context.Background(), callback(999, "acc:"+itoa(a.ID))))
	assert.Contains(t, r.answers[1], "no está vinculado")
}

func TestBot_RoleFilled(t *testing.T) {
	b, f, r := newTestBot(t)
	f.directory[3].TelegramChatID = chat(103)
	_, err := f.svc.RequestTeam(context.Background(), 1, 1)
	require.NoError(t, err)

	require.NoError(t, b.HandleUpdate(context.Background(), callback(102, "acc:"+itoa(f.assignmentFor(t, 2).ID))))
	require.NoError(t, b.HandleUpdate(context.Background(), callback(103, "acc:"+itoa(f.assignmentFor(t, 3).ID))))
	assert.Equal(t, "El cupo para su rol ya fue cubierto.", r.answers[1])
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
