package storage

import (
	"fmt"
	"sort"
	"time"
)

const (
	TicketOpen   = "open"
	TicketClosed = "closed"

	MessageFromUser  = "user"
	MessageFromStaff = "staff"
)

type TicketMessage struct {
	From      string    `json:"from"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Ticket is one support request. Closed tickets are retained for
// history; Messages is append-only.
type Ticket struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	UserTag   string          `json:"userTag"`
	Status    string          `json:"status"`
	Subject   string          `json:"sujet"`
	CreatedAt time.Time       `json:"createdAt"`
	ClaimedBy string          `json:"claimedBy,omitempty"`
	ClaimedAt *time.Time      `json:"claimedAt,omitempty"`
	ClosedAt  *time.Time      `json:"closedAt,omitempty"`
	ClosedBy  string          `json:"closedBy,omitempty"`
	Messages  []TicketMessage `json:"messages"`
}

func (s *Store) readTicketsLocked() map[string]Ticket {
	tickets := map[string]Ticket{}
	s.readJSON(s.ticketsPath, &tickets)
	return tickets
}

func (s *Store) Ticket(id string) (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.readTicketsLocked()[id]
	return ticket, ok
}

// OpenTicketFor returns the requester's open ticket, if any. At most
// one exists per requester.
func (s *Store) OpenTicketFor(userID string) (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ticket := range s.readTicketsLocked() {
		if ticket.UserID == userID && ticket.Status == TicketOpen {
			return ticket, true
		}
	}
	return Ticket{}, false
}

func (s *Store) PutTicket(ticket Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets := s.readTicketsLocked()
	tickets[ticket.ID] = ticket
	s.writeJSON(s.ticketsPath, tickets)
}

func (s *Store) DeleteTicket(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets := s.readTicketsLocked()
	delete(tickets, id)
	s.writeJSON(s.ticketsPath, tickets)
}

// ListTickets returns all tickets, newest first.
func (s *Store) ListTickets() []Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets := s.readTicketsLocked()
	list := make([]Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		list = append(list, ticket)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

func (s *Store) CountTickets() (open, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ticket := range s.readTicketsLocked() {
		total++
		if ticket.Status == TicketOpen {
			open++
		}
	}
	return open, total
}

func (s *Store) ResetTickets() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeJSON(s.ticketsPath, map[string]Ticket{})
}

// NewTicketID derives an id from the current time; a numeric suffix
// disambiguates two opens inside the same millisecond.
func (s *Store) NewTicketID(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets := s.readTicketsLocked()
	id := fmt.Sprintf("t_%d", now.UnixMilli())
	if _, exists := tickets[id]; !exists {
		return id
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", id, i)
		if _, exists := tickets[candidate]; !exists {
			return candidate
		}
	}
}
