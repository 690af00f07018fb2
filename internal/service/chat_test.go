package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/assistant/internal/adapter/llm"
	"github.com/xiaot623/gogo/assistant/internal/briefing"
	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/intent"
	"github.com/xiaot623/gogo/assistant/internal/metrics"
	"github.com/xiaot623/gogo/assistant/internal/repository"
	"github.com/xiaot623/gogo/assistant/internal/service"
	"github.com/xiaot623/gogo/assistant/policy"
	"github.com/xiaot623/gogo/assistant/tests/helpers"
)

var (
	admin  = domain.Identity{AccountID: "acc-admin", Role: domain.AccountRoleAdmin}
	member = domain.Identity{AccountID: helpers.MemberAccount, Role: domain.AccountRoleMember}
	other  = domain.Identity{AccountID: helpers.OtherAccount, Role: domain.AccountRoleMember}
)

type fakeReplier struct {
	reply   *llm.Reply
	err     error
	prompt  string
	history []domain.Message
	calls   int
}

func (f *fakeReplier) GenerateReply(_ context.Context, systemPrompt string, history []domain.Message) (*llm.Reply, error) {
	f.calls++
	f.prompt = systemPrompt
	f.history = history
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

type fixture struct {
	svc      *service.Service
	mr       *miniredis.Miniredis
	sessions *repository.SessionStore
	replier  *fakeReplier
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T, rateLimit int) *fixture {
	t.Helper()
	ctx := context.Background()

	events := helpers.NewTestEventStore(t)
	helpers.SeedScenario(t, events)
	mr, rdb := helpers.NewTestRedis(t)

	format, err := intent.NewFormatter(intent.DefaultTimeZone)
	require.NoError(t, err)
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)

	m := metrics.NewNop()
	sessions := repository.NewSessionStore(rdb, 200, nil)
	replier := &fakeReplier{reply: &llm.Reply{Text: "Respuesta del modelo", Provider: "groq", Model: "llama-3.1-8b-instant"}}

	svc := service.New(service.Deps{
		Sessions: sessions,
		Limiter:  repository.NewRateLimiter(rdb, rateLimit, time.Minute),
		Resolver: intent.NewResolver(events, format, nil),
		Briefing: briefing.NewBuilder(events, format, nil, m),
		Replier:  replier,
		Scopes:   engine,
		Metrics:  m,
	}, service.Options{MaxMessageLength: 1400, SessionListLimit: 50})

	return &fixture{svc: svc, mr: mr, sessions: sessions, replier: replier, metrics: m}
}

func TestSendMessageDeterministic(t *testing.T) {
	f := newFixture(t, 30)

	res, err := f.svc.SendMessage(context.Background(), admin, domain.SendMessageRequest{Message: "  ¿cuál es el último evento?  "})
	require.NoError(t, err)

	assert.Equal(t, domain.RoleAssistant, res.Message.Role)
	assert.Equal(t, "deterministic", res.Message.Provider)
	assert.Equal(t, "event-rules", res.Message.Model)
	assert.True(t, strings.HasPrefix(res.Message.Content, "El ultimo evento registrado en todo el sistema es: "))
	assert.Zero(t, f.replier.calls)

	require.Len(t, res.Messages, 2)
	assert.Equal(t, "¿cuál es el último evento?", res.Messages[0].Content)
	assert.Equal(t, res.Message.ID, res.Messages[1].ID)
	assert.Equal(t, "¿cuál es el último evento?", res.Session.Title)
	assert.True(t, res.Session.UpdatedAt.Equal(res.Message.CreatedAt))
}

func TestSendMessageFallsBackToLanguageModel(t *testing.T) {
	f := newFixture(t, 30)

	res, err := f.svc.SendMessage(context.Background(), member, domain.SendMessageRequest{
		Message:   "¿Cómo doy de alta un dispositivo?",
		UIContext: &domain.UIContext{CurrentPath: "/devices", AvailableRoutes: []domain.RouteItem{{Label: "Dispositivos", Path: "/devices"}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "groq", res.Message.Provider)
	assert.Equal(t, "llama-3.1-8b-instant", res.Message.Model)
	assert.Equal(t, "Respuesta del modelo", res.Message.Content)

	require.Equal(t, 1, f.replier.calls)
	assert.Contains(t, f.replier.prompt, "El usuario actual tiene rol MEMBER.")
	assert.Contains(t, f.replier.prompt, "Rol: MEMBER\nDispositivos asignados: 2")
	assert.Contains(t, f.replier.prompt, "Ruta actual: /devices\nRutas disponibles:\n- Dispositivos: /devices")
	require.Len(t, f.replier.history, 1)
	assert.Equal(t, domain.RoleUser, f.replier.history[0].Role)
}

func TestSendMessageTitleIsDerivedOnce(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()

	first := strings.Repeat("á", 100)
	res, err := f.svc.SendMessage(ctx, member, domain.SendMessageRequest{Message: first})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("á", 60), res.Session.Title)

	res, err = f.svc.SendMessage(ctx, member, domain.SendMessageRequest{Message: "otra pregunta", SessionID: res.Session.SessionID})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("á", 60), res.Session.Title)
	assert.Len(t, res.Messages, 4)

	// The model saw the whole conversation so far.
	assert.Len(t, f.replier.history, 3)
}

func TestSendMessageRejectsForeignSession(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()

	res, err := f.svc.SendMessage(ctx, member, domain.SendMessageRequest{Message: "hola"})
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, other, domain.SendMessageRequest{Message: "hola", SessionID: res.Session.SessionID})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.SendMessage(ctx, member, domain.SendMessageRequest{Message: "hola", SessionID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = f.svc.GetSessionMessages(ctx, other, res.Session.SessionID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	messages, err := f.sessions.GetMessages(ctx, res.Session.SessionID)
	require.NoError(t, err)
	assert.Len(t, messages, 2, "foreign sends must not append")
}

func TestSendMessageRateLimited(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.SendMessage(ctx, member, domain.SendMessageRequest{Message: "hola"})
		require.NoError(t, err)
	}
	_, err := f.svc.SendMessage(ctx, member, domain.SendMessageRequest{Message: "hola"})
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	_, err = f.svc.SendMessage(ctx, other, domain.SendMessageRequest{Message: "hola"})
	assert.NoError(t, err)

	f.mr.FastForward(61 * time.Second)
	_, err = f.svc.SendMessage(ctx, member, domain.SendMessageRequest{Message: "hola"})
	assert.NoError(t, err)
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()

	var verr *domain.ValidationError
	_, err := f.svc.SendMessage(ctx, member, domain.SendMessageRequest{Message: "   "})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "message es requerido", verr.Message)

	_, err = f.svc.SendMessage(ctx, member, domain.SendMessageRequest{Message: strings.Repeat("x", 1401)})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "El mensaje supera 1400 caracteres", verr.Message)

	_, err = f.svc.SendMessage(ctx, member, domain.SendMessageRequest{Message: strings.Repeat("x", 1400)})
	assert.NoError(t, err)
}

func TestSendMessageProviderFailureKeepsUserMessage(t *testing.T) {
	f := newFixture(t, 30)
	ctx := context.Background()
	f.replier.err = &domain.ProviderError{Failures: []string{"groq: boom", "huggingface: down"}}

	_, err := f.svc.SendMessage(ctx, member, domain.SendMessageRequest{Message: "hola"})
	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "No fue posible obtener respuesta del LLM. groq: boom | huggingface: down", perr.Error())

	sessions, err := f.svc.ListSessions(ctx, member)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "hola", sessions[0].Title)
	assert.Equal(t, "hola", sessions[0].LastMessagePreview)
}

func TestStoreAvailability(t *testing.T) {
	ctx := context.Background()

	unconfigured := service.New(service.Deps{}, service.Options{})
	_, err := unconfigured.ListSessions(ctx, member)
	assert.ErrorIs(t, err, domain.ErrStoreNotConfigured)
	_, err = unconfigured.SendMessage(ctx, member, domain.SendMessageRequest{Message: "hola"})
	assert.ErrorIs(t, err, domain.ErrStoreNotConfigured)

	f := newFixture(t, 30)
	f.mr.Close()
	_, err = f.svc.SendMessage(ctx, member, domain.SendMessageRequest{Message: "hola"})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	_, err = f.svc.CreateSession(ctx, member, domain.CreateSessionRequest{})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestReplyErrorsAreWrapped(t *testing.T) {
	f := newFixture(t, 30)
	f.replier.err = errors.New("unexpected")

	_, err := f.svc.SendMessage(context.Background(), member, domain.SendMessageRequest{Message: "hola"})
	require.Error(t, err)
	var perr *domain.ProviderError
	assert.False(t, errors.As(err, &perr))
}
