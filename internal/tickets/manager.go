// Package tickets owns the support-ticket lifecycle: open, claim,
// reply, close. Tickets live in the persistent store; the conversation
// itself happens in the requester's DMs, and the external panel is
// notified of every transition.
package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fty-club-bot/internal/botlog"
	"fty-club-bot/internal/monitoring"
	"fty-club-bot/internal/storage"

	"github.com/bwmarrin/discordgo"
)

var (
	// ErrDuplicateOpenTicket rejects an open while the requester
	// already has an open ticket.
	ErrDuplicateOpenTicket = errors.New("requester already has an open ticket")
	// ErrDeliveryFailed reports that the requester's DMs are closed.
	ErrDeliveryFailed = errors.New("direct message delivery failed")
)

const (
	colorPrimary = 0x9333EA
	colorClaim   = 0x3B82F6
	colorClosed  = 0x6B7280
)

// Messenger is the slice of the chat platform the manager needs.
type Messenger interface {
	SendDM(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error
	SendChannelEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
}

// Notifier pushes ticket transitions to the external panel;
// failures are swallowed by the implementation.
type Notifier interface {
	Send(ctx context.Context, action string, data any) error
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Manager struct {
	store     *storage.Store
	messenger Messenger
	panel     Notifier
	ring      *botlog.Ring
	clock     Clock
}

func NewManager(store *storage.Store, messenger Messenger, panelClient Notifier, ring *botlog.Ring) *Manager {
	return &Manager{
		store:     store,
		messenger: messenger,
		panel:     panelClient,
		ring:      ring,
		clock:     realClock{},
	}
}

func (m *Manager) WithClock(clock Clock) {
	m.clock = clock
}

// Open creates a ticket for the requester. The confirmation DM is the
// commit point: if it cannot be delivered the ticket is rolled back
// entirely and the caller should tell the requester to enable DMs.
func (m *Manager) Open(ctx context.Context, userID, userTag, subject string) (storage.Ticket, error) {
	if existing, ok := m.store.OpenTicketFor(userID); ok {
		return existing, ErrDuplicateOpenTicket
	}
	if subject == "" {
		subject = "Ticket Support"
	}

	now := m.clock.Now()
	ticket := storage.Ticket{
		ID:        m.store.NewTicketID(now),
		UserID:    userID,
		UserTag:   userTag,
		Status:    storage.TicketOpen,
		Subject:   subject,
		CreatedAt: now,
		Messages:  []storage.TicketMessage{},
	}
	m.store.PutTicket(ticket)

	confirmation := &discordgo.MessageEmbed{
		Title: "🎫 Ticket Ouvert - FTY Club Pro",
		Description: fmt.Sprintf("Ton ticket a bien été ouvert !\n\n**ID:** `%s`\n\n"+
			"Un membre du staff va te répondre ici directement en DM dès que possible.\n\n"+
			"💬 Tu peux ajouter des informations supplémentaires en répondant à ce message.", ticket.ID),
		Color:     colorPrimary,
		Timestamp: now.Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "FTY Club Pro | Support"},
	}
	if err := m.messenger.SendDM(ctx, userID, confirmation); err != nil {
		m.store.DeleteTicket(ticket.ID)
		m.ring.Log(botlog.LevelError, fmt.Sprintf("❌ Ticket %s annulé: DM impossible → %s", ticket.ID, userID))
		return storage.Ticket{}, ErrDeliveryFailed
	}

	monitoring.TicketOperations.WithLabelValues("open").Inc()
	_ = m.panel.Send(ctx, "newTicket", ticket)
	m.logChannelSummary(ctx, ticket)
	m.ring.Log(botlog.LevelDiscord, fmt.Sprintf("🎫 Ticket ouvert: %s par %s", ticket.ID, userTag))
	return ticket, nil
}

func (m *Manager) logChannelSummary(ctx context.Context, ticket storage.Ticket) {
	logChannel := m.store.ServerConfig().Channels["logs"]
	if logChannel == "" {
		return
	}
	embed := &discordgo.MessageEmbed{
		Title: "🎫 Nouveau Ticket",
		Description: fmt.Sprintf("**Membre:** %s (%s)\n**ID:** `%s`\n**Ouvert:** <t:%d:F>",
			ticket.UserTag, ticket.UserID, ticket.ID, ticket.CreatedAt.Unix()),
		Color:     colorPrimary,
		Timestamp: ticket.CreatedAt.Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "FTY Club Pro | Tickets"},
	}
	_ = m.messenger.SendChannelEmbed(ctx, logChannel, embed)
}

// Claim marks the ticket as handled by a staff member and tells the
// requester. Absent tickets are a no-op success; status is unchanged,
// replies remain possible either way.
func (m *Manager) Claim(ctx context.Context, ticketID, requesterID, staffName string) error {
	if staffName == "" {
		staffName = "Staff"
	}
	if ticket, ok := m.store.Ticket(ticketID); ok {
		now := m.clock.Now()
		ticket.ClaimedBy = staffName
		ticket.ClaimedAt = &now
		m.store.PutTicket(ticket)
	}

	monitoring.TicketOperations.WithLabelValues("claim").Inc()
	embed := &discordgo.MessageEmbed{
		Title: "✋ Ticket Pris en Charge",
		Description: fmt.Sprintf("Ton ticket est maintenant géré par **%s**.\n"+
			"Tu vas recevoir une réponse très prochainement !", staffName),
		Color:     colorClaim,
		Timestamp: m.clock.Now().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "FTY Club Pro | Support"},
	}
	_ = m.messenger.SendDM(ctx, requesterID, embed)
	return nil
}

// Reply appends a staff message to the transcript and delivers it by
// DM. The transcript append is skipped when the record is missing, and
// an already-closed ticket still accepts replies; the DM channel is
// addressed by requester id, independent of ticket state.
func (m *Manager) Reply(ctx context.Context, ticketID, requesterID, subject, staffName, message string) error {
	if staffName == "" {
		staffName = "Staff"
	}
	if ticket, ok := m.store.Ticket(ticketID); ok {
		ticket.Messages = append(ticket.Messages, storage.TicketMessage{
			From:      storage.MessageFromStaff,
			Author:    staffName,
			Content:   message,
			Timestamp: m.clock.Now(),
		})
		m.store.PutTicket(ticket)
		if subject == "" {
			subject = ticket.Subject
		}
	}
	if subject == "" {
		subject = "Ticket Support"
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("💬 Réponse Staff — %s", subject),
		Description: message,
		Color:       colorPrimary,
		Timestamp:   m.clock.Now().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "FTY Club Pro | " + staffName},
	}
	if err := m.messenger.SendDM(ctx, requesterID, embed); err != nil {
		return ErrDeliveryFailed
	}

	monitoring.TicketOperations.WithLabelValues("reply").Inc()
	m.ring.Log(botlog.LevelSuccess, fmt.Sprintf("💬 Réponse ticket → %s par %s", requesterID, staffName))
	return nil
}

// Close marks the ticket closed and notifies the requester. Closing an
// already-closed or absent ticket is idempotent: the DM is the only
// repeated side effect.
func (m *Manager) Close(ctx context.Context, ticketID, requesterID, staffName string) error {
	if staffName == "" {
		staffName = "Staff"
	}
	if ticket, ok := m.store.Ticket(ticketID); ok && ticket.Status != storage.TicketClosed {
		now := m.clock.Now()
		ticket.Status = storage.TicketClosed
		ticket.ClosedAt = &now
		ticket.ClosedBy = staffName
		m.store.PutTicket(ticket)
		monitoring.TicketOperations.WithLabelValues("close").Inc()
	}

	embed := &discordgo.MessageEmbed{
		Title: "🔒 Ticket Fermé",
		Description: fmt.Sprintf("Ton ticket a été fermé par **%s**.\n\n"+
			"Pour une nouvelle demande, utilise `/ticket`.", staffName),
		Color:     colorClosed,
		Timestamp: m.clock.Now().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "FTY Club Pro | Support"},
	}
	_ = m.messenger.SendDM(ctx, requesterID, embed)
	return nil
}

// AppendUserMessage records a DM the requester sent while holding an
// open ticket and forwards it to the panel. Reports whether an open
// ticket existed.
func (m *Manager) AppendUserMessage(ctx context.Context, userID, authorTag, content string) (storage.Ticket, bool) {
	ticket, ok := m.store.OpenTicketFor(userID)
	if !ok {
		return storage.Ticket{}, false
	}

	ticket.Messages = append(ticket.Messages, storage.TicketMessage{
		From:      storage.MessageFromUser,
		Author:    authorTag,
		Content:   content,
		Timestamp: m.clock.Now(),
	})
	m.store.PutTicket(ticket)
	_ = m.panel.Send(ctx, "ticketMessage", map[string]any{
		"ticketId": ticket.ID,
		"userId":   userID,
		"author":   authorTag,
		"content":  content,
	})
	return ticket, true
}
