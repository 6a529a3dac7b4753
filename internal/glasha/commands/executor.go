// Package commands turns interpreted utterances into effects: drafts started,
// contacts saved, letters edited and sent. Every reply is user-facing Russian
// text; errors bubble up only for infrastructure failures.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vkatenev/glasha/common/redact"
	"github.com/vkatenev/glasha/common/trace"
	"github.com/vkatenev/glasha/internal/glasha/mailer"
	"github.com/vkatenev/glasha/internal/glasha/nlp"
	"github.com/vkatenev/glasha/internal/glasha/session"
	"github.com/vkatenev/glasha/internal/glasha/store"
)

const helpText = `Я умею:
• написать письмо — «напиши письмо anna@mail.ru об отчете»
• написать письмо контакту — «напиши письмо Анне про встречу»
• запомнить адрес — «запомни почту Анны anna@mail.ru»
• дополнить письмо — «добавь туда с уважением Петр»
• отправить черновик — «отправить», затем «да» или «нет»
• отменить черновик — «отмена»`

// Executor dispatches interpreted commands against the bot's state.
type Executor struct {
	store     *store.Store
	sessions  *session.Manager
	mailer    mailer.Mailer
	matcher   *nlp.Matcher
	subjects  *nlp.SubjectFormatter
	edits     *nlp.EditInterpreter
	masterKey []byte

	// defaultAccount is used when the owner has not stored personal SMTP
	// credentials. Nil means sending requires a stored account.
	defaultAccount *mailer.Account
	defaultFrom    string
	defaultName    string
}

// Config wires an Executor.
type Config struct {
	Store          *store.Store
	Sessions       *session.Manager
	Mailer         mailer.Mailer
	Matcher        *nlp.Matcher
	Subjects       *nlp.SubjectFormatter
	Edits          *nlp.EditInterpreter
	MasterKey      []byte
	DefaultAccount *mailer.Account
	DefaultFrom    string
	DefaultName    string
}

// New creates an Executor.
func New(cfg Config) *Executor {
	return &Executor{
		store:          cfg.Store,
		sessions:       cfg.Sessions,
		mailer:         cfg.Mailer,
		matcher:        cfg.Matcher,
		subjects:       cfg.Subjects,
		edits:          cfg.Edits,
		masterKey:      cfg.MasterKey,
		defaultAccount: cfg.DefaultAccount,
		defaultFrom:    cfg.DefaultFrom,
		defaultName:    cfg.DefaultName,
	}
}

// HandleUtterance is the single entry point for one normalized utterance.
// Session control words (отправить, да, нет, отмена) take precedence over the
// intent cascade, and while a draft is open an unrecognized utterance is read
// as an edit instruction rather than rejected.
func (e *Executor) HandleUtterance(ctx context.Context, sender, roomID, text string) (string, error) {
	ctx, traceID := trace.Ensure(ctx)
	lower := strings.ToLower(strings.TrimSpace(text))
	draft := e.sessions.Get(roomID)

	slog.Debug("handling utterance", "trace_id", traceID, "sender", sender, "room", roomID)

	if reply, handled, err := e.handleControl(ctx, sender, roomID, lower, draft); handled {
		return reply, err
	}

	cmd := e.matcher.Match(text)
	if cmd.Intent == nlp.IntentNone && draft != nil {
		// Mid-composition everything that is not a command is an edit. The
		// leading edit verb is stripped when present; otherwise the whole
		// utterance is the instruction.
		instruction, ok := e.matcher.EditText(text)
		if !ok {
			instruction = strings.TrimSpace(text)
		}
		return e.applyEdit(ctx, sender, draft, instruction)
	}

	return e.Execute(ctx, sender, roomID, cmd)
}

// handleControl processes the draft lifecycle words. handled is false when
// the utterance is not a control word and the cascade should run.
func (e *Executor) handleControl(ctx context.Context, sender, roomID, lower string, draft *session.Compose) (string, bool, error) {
	switch lower {
	case "отмена", "отмени":
		if draft == nil {
			return "Сейчас нет открытого письма.", true, nil
		}
		e.sessions.Clear(roomID)
		return "Хорошо, черновик удален.", true, nil

	case "отправить", "отправь":
		if draft == nil {
			return "Сейчас нет открытого письма. Скажите, например: «напиши письмо anna@mail.ru об отчете».", true, nil
		}
		draft.AwaitingSend = true
		return draft.Render() + "\n\nОтправить? (да/нет)", true, nil
	}

	if draft != nil && draft.AwaitingSend {
		switch lower {
		case "да":
			reply, err := e.sendDraft(ctx, sender, draft)
			return reply, true, err
		case "нет":
			draft.AwaitingSend = false
			return "Хорошо, продолжаем редактировать.", true, nil
		}
		// Any other text drops the confirmation and is processed normally.
		draft.AwaitingSend = false
	}

	return "", false, nil
}

// Execute dispatches one matched command.
func (e *Executor) Execute(ctx context.Context, sender, roomID string, cmd nlp.Command) (string, error) {
	switch cmd.Intent {
	case nlp.IntentSendEmailByAddress:
		return e.startDraft(ctx, sender, roomID, cmd.Slots[nlp.SlotEmail], "", cmd.Slots[nlp.SlotSubjectRaw])

	case nlp.IntentSendEmailByName:
		name := cmd.Slots[nlp.SlotRecipientName]
		contact, err := e.store.FindContact(ctx, sender, name)
		if errors.Is(err, store.ErrContactNotFound) {
			return fmt.Sprintf("Я не знаю адреса для «%s». Скажите: «запомни почту %s адрес@домен».", name, name), nil
		}
		if err != nil {
			return "", err
		}
		return e.startDraft(ctx, sender, roomID, contact.Email, contact.Name, cmd.Slots[nlp.SlotSubjectRaw])

	case nlp.IntentAddContact:
		return e.addContact(ctx, sender, cmd.Slots[nlp.SlotRecipientName], cmd.Slots[nlp.SlotEmail])

	case nlp.IntentEditDraft:
		draft := e.sessions.Get(roomID)
		if draft == nil {
			return "Сейчас нет открытого письма, редактировать нечего.", nil
		}
		return e.applyEdit(ctx, sender, draft, cmd.Slots[nlp.SlotBodyRaw])

	default:
		return helpText, nil
	}
}

func (e *Executor) startDraft(ctx context.Context, sender, roomID, email, toName, subjectRaw string) (string, error) {
	subject := e.subjects.Format(subjectRaw)
	draft := e.sessions.Start(roomID, sender, email, toName, subject)

	if err := e.store.WriteAudit(ctx, store.AuditEntry{
		Actor:   sender,
		Action:  "compose_start",
		Target:  redact.Email(email),
		Payload: map[string]string{"subject": subject},
		Result:  store.AuditOK,
	}); err != nil {
		slog.Warn("audit write failed", "err", err)
	}

	return draft.Render() + "\n\nДиктуйте текст письма. Когда будет готово, скажите «отправить».", nil
}

func (e *Executor) addContact(ctx context.Context, sender, name, email string) (string, error) {
	contact, err := e.store.SaveContact(ctx, sender, name, email)
	if err != nil {
		return "", fmt.Errorf("failed to save contact: %w", err)
	}

	if err := e.store.WriteAudit(ctx, store.AuditEntry{
		Actor:  sender,
		Action: "add_contact",
		Target: redact.Email(email),
		Result: store.AuditOK,
	}); err != nil {
		slog.Warn("audit write failed", "err", err)
	}

	return fmt.Sprintf("Запомнила: %s — %s.", contact.Name, contact.Email), nil
}

func (e *Executor) applyEdit(ctx context.Context, sender string, draft *session.Compose, instruction string) (string, error) {
	action := e.edits.Interpret(instruction)
	draft.Body = nlp.ApplyEdit(draft.Body, action)

	if err := e.store.WriteAudit(ctx, store.AuditEntry{
		Actor:   sender,
		Action:  "edit_draft",
		Payload: map[string]string{"kind": action.Kind.String()},
		Result:  store.AuditOK,
	}); err != nil {
		slog.Warn("audit write failed", "err", err)
	}

	return "Готово. Сейчас письмо выглядит так:\n\n" + draft.Render(), nil
}

// sendDraft delivers the confirmed draft and journals the attempt.
func (e *Executor) sendDraft(ctx context.Context, sender string, draft *session.Compose) (string, error) {
	acct, from, fromName, err := e.resolveAccount(ctx, sender)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return "У вас не настроена почта для отправки. Обратитесь к администратору.", nil
		}
		return "", err
	}

	subject := draft.Subject
	if subject == "" {
		subject = "Без темы"
	}

	msg := mailer.Message{
		From:     from,
		FromName: fromName,
		To:       draft.To,
		Subject:  subject,
		Body:     draft.Body.String(),
	}

	sendErr := e.mailer.Send(ctx, acct, msg)

	status := store.OutboxSent
	errMsg := ""
	if sendErr != nil {
		status = store.OutboxFailed
		errMsg = sendErr.Error()
	}
	if _, err := e.store.RecordOutbox(ctx, store.OutboxEntry{
		OwnerMXID: sender,
		ToAddr:    draft.To,
		Subject:   subject,
		Body:      msg.Body,
		Status:    status,
		ErrorMsg:  errMsg,
		TraceID:   trace.FromContext(ctx),
	}); err != nil {
		slog.Warn("outbox write failed", "err", err)
	}

	auditResult := store.AuditOK
	if sendErr != nil {
		auditResult = store.AuditError
	}
	if err := e.store.WriteAudit(ctx, store.AuditEntry{
		Actor:  sender,
		Action: "send_mail",
		Target: redact.Email(draft.To),
		Result: auditResult,
		Error:  errMsg,
	}); err != nil {
		slog.Warn("audit write failed", "err", err)
	}

	if sendErr != nil {
		draft.AwaitingSend = false
		slog.Error("mail delivery failed", "to", redact.Email(draft.To), "err", sendErr)
		return "Не получилось отправить письмо. Попробуйте еще раз позже.", nil
	}

	e.sessions.Clear(draft.RoomID)
	return fmt.Sprintf("Письмо для %s отправлено.", draft.To), nil
}

// resolveAccount prefers the owner's stored credentials over the shared
// default account.
func (e *Executor) resolveAccount(ctx context.Context, owner string) (mailer.Account, string, string, error) {
	stored, err := e.store.GetMailAccount(ctx, owner)
	if err == nil {
		password, decErr := stored.DecryptPassword(e.masterKey)
		if decErr != nil {
			return mailer.Account{}, "", "", fmt.Errorf("failed to decrypt account password: %w", decErr)
		}
		return mailer.Account{
			Host:     stored.SMTPHost,
			Port:     stored.SMTPPort,
			Username: stored.Username,
			Password: password,
		}, stored.FromAddr, stored.DisplayName, nil
	}
	if !errors.Is(err, store.ErrAccountNotFound) {
		return mailer.Account{}, "", "", err
	}

	if e.defaultAccount != nil {
		return *e.defaultAccount, e.defaultFrom, e.defaultName, nil
	}
	return mailer.Account{}, "", "", store.ErrAccountNotFound
}
