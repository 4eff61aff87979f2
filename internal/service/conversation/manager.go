// Package conversation keeps one in-memory chat consistent with the store
// across the interaction lifecycle: drafting, sending, reloading history,
// and deleting. It owns the create-vs-update policy for persistence.
package conversation

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nova-labs/nova-chat/server/internal/model/chat"
)

var (
	ErrEmptyMessage = errors.New("message content is empty")
	ErrEmptyTopic   = errors.New("topic is empty")
	// ErrTopicRequired signals that the caller must prompt for a topic before
	// the first message of a fresh conversation is accepted.
	ErrTopicRequired = errors.New("topic required before first message")
)

// Replies substituted when the completion service fails or returns nothing.
const (
	FallbackReply = "Sorry, I couldn't connect to the model."
	NoReply       = "No reply received."
)

// DefaultModel is the selection for a fresh conversation.
const DefaultModel = "gemini-2.0-flash"

// modelProviders routes a model id to its completion provider.
var modelProviders = map[string]string{
	"meta-llama/llama-3.3-8b-instruct:free": "openrouter",
	"gemini-2.0-flash":                      "gemini",
}

const defaultProvider = "openrouter"

// ProviderFor returns the completion provider serving the given model.
func ProviderFor(model string) string {
	if provider, ok := modelProviders[model]; ok {
		return provider
	}
	return defaultProvider
}

// Store is the persistence surface the manager reconciles against.
type Store interface {
	List(ctx context.Context) ([]chat.Session, error)
	Get(ctx context.Context, id string) (chat.Session, error)
	Create(ctx context.Context, session chat.Session) (string, error)
	Update(ctx context.Context, session chat.Session) (string, error)
	Delete(ctx context.Context, id string) error
}

// Completer produces an assistant reply for one user message.
type Completer interface {
	Complete(ctx context.Context, message, provider, model string) (string, error)
}

// saveRef tags whether the conversation has a store identity yet. The tag is
// the single source of truth for the create-vs-update decision.
type saveRef struct {
	saved bool
	id    string
}

// Manager holds the current conversation and a cached session list. It runs
// on a single logical thread; it is not safe for concurrent use.
type Manager struct {
	store     Store
	completer Completer
	now       func() time.Time

	ref      saveRef
	title    string
	model    string
	messages []chat.Message
	history  []chat.Session
}

// NewManager creates a manager in the empty state.
func NewManager(st Store, completer Completer) *Manager {
	return &Manager{
		store:     st,
		completer: completer,
		now:       time.Now,
		model:     DefaultModel,
	}
}

// NewChat discards the current conversation and starts drafting a new one.
// The model selection survives.
func (m *Manager) NewChat() {
	m.ref = saveRef{}
	m.title = ""
	m.messages = nil
}

// SetModel changes which model completions are routed to.
func (m *Manager) SetModel(model string) {
	if model != "" {
		m.model = model
	}
}

// Model returns the current model selection.
func (m *Manager) Model() string { return m.model }

// Title returns the current topic, empty while none is set.
func (m *Manager) Title() string { return m.title }

// SessionID returns the persisted id and whether the conversation is saved.
func (m *Manager) SessionID() (string, bool) {
	return m.ref.id, m.ref.saved
}

// Messages returns a copy of the in-memory transcript.
func (m *Manager) Messages() []chat.Message {
	return append([]chat.Message(nil), m.messages...)
}

// History returns a copy of the cached session list.
func (m *Manager) History() []chat.Session {
	return append([]chat.Session(nil), m.history...)
}

// SetTopic names the conversation. When messages are already pending the
// session is persisted immediately under the new title.
func (m *Manager) SetTopic(ctx context.Context, topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ErrEmptyTopic
	}

	m.title = topic
	if len(m.messages) > 0 {
		m.persist(ctx)
		m.refreshHistory(ctx)
	}
	return nil
}

// Send appends a user message, obtains the assistant reply, and persists the
// session. A completion failure is absorbed into a fallback reply so the
// exchange never ends half-open. The assistant message is returned.
func (m *Manager) Send(ctx context.Context, content string) (chat.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return chat.Message{}, ErrEmptyMessage
	}
	if !m.ref.saved && m.title == "" && len(m.messages) == 0 {
		return chat.Message{}, ErrTopicRequired
	}

	m.messages = append(m.messages, chat.Message{
		Role:    chat.RoleUser,
		Content: content,
		Time:    m.clock(),
	})

	reply, err := m.completer.Complete(ctx, content, ProviderFor(m.model), m.model)
	switch {
	case err != nil:
		log.Printf("[conversation] completion failed: %v", err)
		reply = FallbackReply
	case reply == "":
		reply = NoReply
	}

	assistant := chat.Message{
		Role:    chat.RoleAssistant,
		Content: reply,
		Time:    m.clock(),
	}
	m.messages = append(m.messages, assistant)

	m.persist(ctx)
	m.refreshHistory(ctx)
	return assistant, nil
}

// SelectSession loads a stored session and replaces the in-memory state
// wholesale. On failure the current state is left untouched.
func (m *Manager) SelectSession(ctx context.Context, id string) error {
	session, err := m.store.Get(ctx, id)
	if err != nil {
		log.Printf("[conversation] load session %s failed: %v", id, err)
		return err
	}

	m.ref = saveRef{saved: true, id: session.ID}
	m.title = session.Title
	m.messages = append([]chat.Message(nil), session.Messages...)
	if session.Model != "" {
		m.model = session.Model
	}
	return nil
}

// DeleteSession removes a stored session. Deleting the active conversation
// resets to the empty state; the cached list is refreshed either way.
func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	err := m.store.Delete(ctx, id)
	if err != nil {
		log.Printf("[conversation] delete session %s failed: %v", id, err)
	} else if m.ref.saved && m.ref.id == id {
		m.NewChat()
	}

	m.refreshHistory(ctx)
	return err
}

// RefreshHistory re-fetches the session list from the store. On failure the
// previously cached list stays in place.
func (m *Manager) RefreshHistory(ctx context.Context) {
	m.refreshHistory(ctx)
}

// persist writes the current conversation: Create when unsaved, Update once
// an id is held. Store failures are logged and absorbed; the in-memory state
// is the caller's to retry from.
func (m *Manager) persist(ctx context.Context) {
	if len(m.messages) == 0 {
		return
	}

	title := m.title
	if title == "" {
		title = chat.DefaultTitle(m.messages[0].Content)
	}

	session := chat.Session{
		ID:          m.ref.id,
		Title:       title,
		LastMessage: m.messages[len(m.messages)-1].Content,
		Time:        m.clock(),
		Messages:    append([]chat.Message(nil), m.messages...),
		Model:       m.model,
	}

	if !m.ref.saved {
		session.ID = uuid.NewString()
		id, err := m.store.Create(ctx, session)
		if err != nil {
			log.Printf("[conversation] create session failed: %v", err)
			return
		}
		m.ref = saveRef{saved: true, id: id}
		return
	}

	if _, err := m.store.Update(ctx, session); err != nil {
		log.Printf("[conversation] update session %s failed: %v", m.ref.id, err)
	}
}

func (m *Manager) refreshHistory(ctx context.Context) {
	sessions, err := m.store.List(ctx)
	if err != nil {
		log.Printf("[conversation] list sessions failed: %v", err)
		return
	}
	m.history = dedupByID(sessions)
}

// dedupByID collapses duplicate session ids, last write wins. The store's
// unique index should make this a no-op; it guards the cached list anyway.
func dedupByID(sessions []chat.Session) []chat.Session {
	out := make([]chat.Session, 0, len(sessions))
	index := make(map[string]int, len(sessions))
	for _, session := range sessions {
		if at, ok := index[session.ID]; ok {
			out[at] = session
			continue
		}
		index[session.ID] = len(out)
		out = append(out, session)
	}
	return out
}

// clock renders the wall time the way the UI displays it.
func (m *Manager) clock() string {
	return m.now().Format("3:04:05 PM")
}
