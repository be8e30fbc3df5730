package staffing

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/obstetric/obstetric/internal/domain/staff"
	"github.com/obstetric/obstetric/internal/platform/apperr"
	"github.com/obstetric/obstetric/internal/platform/telegram"
)

// ChatLinker binds chat ids to staff accounts. *staff.Service implements it.
type ChatLinker interface {
	LinkTelegram(ctx context.Context, code string, chatID int64) (*staff.User, error)
	FindByChatID(ctx context.Context, chatID int64) (*staff.User, error)
}

// BotReplier answers the chat. *telegram.Client implements it.
type BotReplier interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) (*telegram.Message, error)
	AnswerCallbackQuery(ctx context.Context, id, text string) error
}

// BotHandler turns chat updates into account links and invitation answers.
type BotHandler struct {
	svc    *Service
	linker ChatLinker
	reply  BotReplier
	logger zerolog.Logger
}

func NewBotHandler(svc *Service, linker ChatLinker, reply BotReplier, logger zerolog.Logger) *BotHandler {
	return &BotHandler{
		svc:    svc,
		linker: linker,
		reply:  reply,
		logger: logger.With().Str("component", "telegram-bot").Logger(),
	}
}

var _ telegram.UpdateHandler = (*BotHandler)(nil)

func (b *BotHandler) HandleUpdate(ctx context.Context, u telegram.Update) error {
	switch {
	case u.CallbackQuery != nil:
		return b.handleCallback(ctx, u)
	case u.Message != nil && strings.HasPrefix(u.Message.Text, "/start"):
		return b.handleStart(ctx, u.Message)
	case u.Message != nil:
		return b.say(ctx, u.Message.Chat.ID, "Use los botones de cada convocatoria para responder.")
	}
	return nil
}

func (b *BotHandler) handleStart(ctx context.Context, m *telegram.Message) error {
	code := strings.TrimSpace(strings.TrimPrefix(m.Text, "/start"))
	if code == "" {
		return b.say(ctx, m.Chat.ID, "Genere un enlace de vinculación desde su perfil para activar las notificaciones.")
	}
	user, err := b.linker.LinkTelegram(ctx, code, m.Chat.ID)
	if err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", m.Chat.ID).Msg("link failed")
		if errors.Is(err, staff.ErrChatLinked) {
			return b.say(ctx, m.Chat.ID, "Este chat ya está vinculado a otra cuenta.")
		}
		return b.say(ctx, m.Chat.ID, "El código de vinculación no es válido o ya fue usado.")
	}
	b.logger.Info().Int64("staff_id", user.ID).Int64("chat_id", m.Chat.ID).Msg("chat linked")
	return b.say(ctx, m.Chat.ID, "Cuenta vinculada: "+user.FullName+". Recibirá aquí las convocatorias.")
}

// parseCallback splits "acc:<id>" / "rej:<id>".
func parseCallback(data string) (id int64, accept bool, ok bool) {
	var rest string
	switch {
	case strings.HasPrefix(data, CallbackAccept):
		rest, accept = strings.TrimPrefix(data, CallbackAccept), true
	case strings.HasPrefix(data, CallbackReject):
		rest = strings.TrimPrefix(data, CallbackReject)
	default:
		return 0, false, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false, false
	}
	return id, accept, true
}

func (b *BotHandler) handleCallback(ctx context.Context, u telegram.Update) error {
	q := u.CallbackQuery
	id, accept, ok := parseCallback(q.Data)
	if !ok {
		return b.answer(ctx, q.ID, "Acción desconocida.")
	}
	user, err := b.linker.FindByChatID(ctx, u.ChatID())
	if err != nil {
		return b.answer(ctx, q.ID, "Este chat no está vinculado a ninguna cuenta.")
	}

	_, err = b.svc.Respond(ctx, id, user.ID, accept)
	switch {
	case err == nil && accept:
		return b.answer(ctx, q.ID, "Convocatoria aceptada.")
	case err == nil:
		return b.answer(ctx, q.ID, "Convocatoria rechazada.")
	case errors.Is(err, ErrRoleFilled):
		return b.answer(ctx, q.ID, "El cupo para su rol ya fue cubierto.")
	case errors.Is(err, ErrNotPending):
		return b.answer(ctx, q.ID, "Esta convocatoria ya no está vigente.")
	case apperr.KindOf(err) != 0:
		return b.answer(ctx, q.ID, "No fue posible registrar su respuesta.")
	}
	b.answer(ctx, q.ID, "Error interno, intente nuevamente.")
	return err
}

func (b *BotHandler) say(ctx context.Context, chatID int64, text string) error {
	if b.reply == nil {
		return nil
	}
	_, err := b.reply.SendMessage(ctx, chatID, text, nil)
	return err
}

func (b *BotHandler) answer(ctx context.Context, callbackID, text string) error {
	if b.reply == nil {
		return nil
	}
	return b.reply.AnswerCallbackQuery(ctx, callbackID, text)
}
