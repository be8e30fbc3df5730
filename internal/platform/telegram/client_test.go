package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obstetric/obstetric/internal/platform/notification"
)

func newTestServer(t *testing.T, handler func(method string, body map[string]interface{}) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		method := parts[len(parts)-1]
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)
		status, resp := handler(method, body)
		w.WriteHeader(status)
		io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(555), body["chat_id"])
		assert.Equal(t, "hola", body["text"])
		assert.NotNil(t, body["reply_markup"])
		io.WriteString(w, `{"ok":true,"result":{"message_id":9,"chat":{"id":555},"date":1}}`)
	}))
	defer srv.Close()

	c := NewClient("TOKEN", srv.URL)
	kb := &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{{{Text: "Aceptar", CallbackData: "acc:1"}}}}
	msg, err := c.SendMessage(context.Background(), 555, "hola", kb)
	require.NoError(t, err)
	assert.Equal(t, int64(9), msg.MessageID)
	assert.Equal(t, "/botTOKEN/sendMessage", gotPath)
}

func TestSend_NotOK(t *testing.T) {
	srv := newTestServer(t, func(string, map[string]interface{}) (int, string) {
		return http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`
	})

	err := NewClient("TOKEN", srv.URL).Send(context.Background(), 1, "x", []notification.Button{{Text: "a", Data: "acc:1"}})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.True(t, apiErr.Permanent())
	assert.Contains(t, apiErr.Error(), "chat not found")
}

func TestSend_OKFalseWith200(t *testing.T) {
	srv := newTestServer(t, func(string, map[string]interface{}) (int, string) {
		return http.StatusOK, `{"ok":false,"description":"weird"}`
	})
	_, err := NewClient("TOKEN", srv.URL).SendMessage(context.Background(), 1, "x", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, apiErr.Permanent())
}

func TestAPIError_TooManyRequestsIsTransient(t *testing.T) {
	assert.False(t, (&APIError{StatusCode: 429}).Permanent())
	assert.False(t, (&APIError{StatusCode: 502}).Permanent())
	assert.True(t, (&APIError{StatusCode: 403}).Permanent())
}

func TestGetUpdates(t *testing.T) {
	srv := newTestServer(t, func(method string, body map[string]interface{}) (int, string) {
		assert.Equal(t, "getUpdates", method)
		assert.Equal(t, float64(7), body["offset"])
		assert.Equal(t, float64(30), body["timeout"])
		return http.StatusOK, `{"ok":true,"result":[{"update_id":7,"message":{"message_id":1,"chat":{"id":99},"date":1,"text":"/start abc"}}]}`
	})

	updates, err := NewClient("TOKEN", srv.URL).GetUpdates(context.Background(), 7, 30*time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, int64(99), updates[0].ChatID())
	assert.Equal(t, "/start abc", updates[0].Message.Text)
}

func TestAnswerCallbackQuery(t *testing.T) {
	srv := newTestServer(t, func(method string, body map[string]interface{}) (int, string) {
		assert.Equal(t, "answerCallbackQuery", method)
		assert.Equal(t, "cb-1", body["callback_query_id"])
		return http.StatusOK, `{"ok":true,"result":true}`
	})
	require.NoError(t, NewClient("TOKEN", srv.URL).AnswerCallbackQuery(context.Background(), "cb-1", "ok"))
}

type scriptedSource struct {
	mu      sync.Mutex
	calls   []int64
	batches [][]Update
	errs    []error
	cancel  context.CancelFunc
}

func (s *scriptedSource) GetUpdates(ctx context.Context, offset int64, _ time.Duration) ([]Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, offset)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(s.batches) == 0 {
		s.cancel()
		return nil, ctx.Err()
	}
	b := s.batches[0]
	s.batches = s.batches[1:]
	return b, nil
}

func TestPoller_AdvancesOffsetAndSurvivesErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &scriptedSource{
		batches: [][]Update{
			{{UpdateID: 10}, {UpdateID: 11}},
			{{UpdateID: 12}},
		},
		errs:   []error{nil, errors.New("network down")},
		cancel: cancel,
	}

	var handled []int64
	p := &Poller{
		source: src,
		handler: UpdateHandlerFunc(func(_ context.Context, u Update) error {
			handled = append(handled, u.UpdateID)
			if u.UpdateID == 11 {
				return errors.New("bad update")
			}
			return nil
		}),
		minBackoff: time.Millisecond,
		maxBackoff: time.Millisecond,
		logger:     zerolog.Nop(),
	}

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, []int64{10, 11, 12}, handled)
	assert.Equal(t, []int64{0, 12, 12, 13}, src.calls)
}

func TestWebhookHandler(t *testing.T) {
	var got Update
	h := WebhookHandler("s3cret", UpdateHandlerFunc(func(_ context.Context, u Update) error {
		got = u
		return nil
	}), zerolog.Nop())

	e := echo.New()
	body := `{"update_id":5,"callback_query":{"id":"q","from":{"id":3},"data":"acc:4"}}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/telegram/webhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	err := h(e.NewContext(req, httptest.NewRecorder()))
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/telegram/webhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(secretHeader, "s3cret")
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acc:4", got.CallbackQuery.Data)
	assert.Equal(t, int64(3), got.ChatID())
}
