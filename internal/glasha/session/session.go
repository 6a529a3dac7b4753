// Package session tracks the letter each room is currently composing.
// A room has at most one draft at a time; starting a new letter replaces the
// old one.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vkatenev/glasha/internal/glasha/nlp"
)

// Compose is the draft under construction in one room.
type Compose struct {
	ID        string
	RoomID    string
	Owner     string
	To        string
	ToName    string
	Subject   string
	Body      nlp.Draft
	StartedAt time.Time

	// AwaitingSend is set after the user asks to send and the bot shows the
	// preview. Only "да" may flip the draft into actual delivery.
	AwaitingSend bool
}

// Render formats the draft the way it is previewed in the room before sending.
func (c *Compose) Render() string {
	var b strings.Builder

	to := c.To
	if c.ToName != "" {
		to = fmt.Sprintf("%s <%s>", c.ToName, c.To)
	}
	fmt.Fprintf(&b, "Кому: %s\n", to)

	subject := c.Subject
	if subject == "" {
		subject = "Без темы"
	}
	fmt.Fprintf(&b, "Тема: %s\n", subject)

	body := c.Body.String()
	if body != "" {
		b.WriteString("\n")
		b.WriteString(body)
	}
	return b.String()
}

// Manager holds the active drafts keyed by room ID.
type Manager struct {
	mu     sync.Mutex
	drafts map[string]*Compose
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{drafts: make(map[string]*Compose)}
}

// Start begins a new draft in the room, discarding any previous one.
func (m *Manager) Start(roomID, owner, to, toName, subject string) *Compose {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := &Compose{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		Owner:     owner,
		To:        to,
		ToName:    toName,
		Subject:   subject,
		StartedAt: time.Now(),
	}
	m.drafts[roomID] = c
	return c
}

// Get returns the room's active draft, or nil when none exists.
func (m *Manager) Get(roomID string) *Compose {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drafts[roomID]
}

// Clear drops the room's draft.
func (m *Manager) Clear(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, roomID)
}

// Active returns the number of drafts currently open, for the status page.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.drafts)
}
