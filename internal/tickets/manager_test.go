package tickets

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fty-club-bot/internal/botlog"
	"fty-club-bot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type fakeMessenger struct {
	failDM        bool
	dms           []string
	dmEmbeds      []*discordgo.MessageEmbed
	channelEmbeds map[string][]*discordgo.MessageEmbed
}

func (f *fakeMessenger) SendDM(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	if f.failDM {
		return errors.New("cannot send messages to this user")
	}
	f.dms = append(f.dms, userID)
	f.dmEmbeds = append(f.dmEmbeds, embed)
	return nil
}

func (f *fakeMessenger) SendChannelEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	if f.channelEmbeds == nil {
		f.channelEmbeds = map[string][]*discordgo.MessageEmbed{}
	}
	f.channelEmbeds[channelID] = append(f.channelEmbeds[channelID], embed)
	return nil
}

type fakeNotifier struct {
	actions []string
}

func (f *fakeNotifier) Send(ctx context.Context, action string, data any) error {
	f.actions = append(f.actions, action)
	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T) (*Manager, *storage.Store, *fakeMessenger, *fakeNotifier, *fakeClock) {
	t.Helper()
	dir := t.TempDir()
	store := storage.New(filepath.Join(dir, "config.json"), filepath.Join(dir, "tickets.json"), zap.NewNop())
	messenger := &fakeMessenger{}
	notifier := &fakeNotifier{}
	clock := &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}

	manager := NewManager(store, messenger, notifier, botlog.New(10, zap.NewNop()))
	manager.WithClock(clock)
	return manager, store, messenger, notifier, clock
}

func TestOpenCreatesTicketAndConfirms(t *testing.T) {
	manager, store, messenger, notifier, _ := newTestManager(t)

	ticket, err := manager.Open(context.Background(), "u1", "alex", "probleme de role")
	if err != nil {
		t.Fatal(err)
	}
	if ticket.Status != storage.TicketOpen || ticket.Subject != "probleme de role" {
		t.Fatalf("ticket = %+v", ticket)
	}

	persisted, ok := store.Ticket(ticket.ID)
	if !ok || persisted.UserID != "u1" {
		t.Fatalf("not persisted: %+v, %v", persisted, ok)
	}
	if len(messenger.dms) != 1 || messenger.dms[0] != "u1" {
		t.Fatalf("confirmation DM missing: %v", messenger.dms)
	}
	if len(notifier.actions) != 1 || notifier.actions[0] != "newTicket" {
		t.Fatalf("panel actions = %v", notifier.actions)
	}
}

func TestOpenDefaultSubject(t *testing.T) {
	manager, _, _, _, _ := newTestManager(t)

	ticket, err := manager.Open(context.Background(), "u1", "alex", "")
	if err != nil {
		t.Fatal(err)
	}
	if ticket.Subject != "Ticket Support" {
		t.Fatalf("subject = %q", ticket.Subject)
	}
}

func TestOpenRejectsDuplicate(t *testing.T) {
	manager, _, _, _, _ := newTestManager(t)

	first, err := manager.Open(context.Background(), "u1", "alex", "a")
	if err != nil {
		t.Fatal(err)
	}

	existing, err := manager.Open(context.Background(), "u1", "alex", "b")
	if !errors.Is(err, ErrDuplicateOpenTicket) {
		t.Fatalf("err = %v", err)
	}
	if existing.ID != first.ID {
		t.Fatalf("returned %s, want the existing ticket %s", existing.ID, first.ID)
	}
}

func TestOpenRollsBackOnDMFailure(t *testing.T) {
	manager, store, messenger, notifier, _ := newTestManager(t)
	messenger.failDM = true

	_, err := manager.Open(context.Background(), "u1", "alex", "a")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("err = %v", err)
	}
	if _, total := store.CountTickets(); total != 0 {
		t.Fatal("failed open left a persisted ticket")
	}
	if len(notifier.actions) != 0 {
		t.Fatalf("panel notified despite rollback: %v", notifier.actions)
	}
}

func TestOpenAfterCloseGetsNewID(t *testing.T) {
	manager, _, _, _, clock := newTestManager(t)

	first, err := manager.Open(context.Background(), "u1", "alex", "a")
	if err != nil {
		t.Fatal(err)
	}
	if err := manager.Close(context.Background(), first.ID, "u1", "staff"); err != nil {
		t.Fatal(err)
	}

	clock.now = clock.now.Add(time.Minute)
	second, err := manager.Open(context.Background(), "u1", "alex", "b")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == first.ID {
		t.Fatal("reopened ticket reused the old id")
	}
}

func TestClaimRecordsStaff(t *testing.T) {
	manager, store, messenger, _, _ := newTestManager(t)

	ticket, _ := manager.Open(context.Background(), "u1", "alex", "a")
	if err := manager.Claim(context.Background(), ticket.ID, "u1", "Sam"); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Ticket(ticket.ID)
	if got.ClaimedBy != "Sam" || got.ClaimedAt == nil {
		t.Fatalf("claim not recorded: %+v", got)
	}
	if got.Status != storage.TicketOpen {
		t.Fatal("claim changed the status")
	}
	if len(messenger.dms) != 2 {
		t.Fatalf("courtesy DM missing, dms = %v", messenger.dms)
	}
}

func TestClaimMissingTicketStillNotifies(t *testing.T) {
	manager, _, messenger, _, _ := newTestManager(t)

	if err := manager.Claim(context.Background(), "t_absent", "u1", "Sam"); err != nil {
		t.Fatal(err)
	}
	if len(messenger.dms) != 1 {
		t.Fatal("claim on absent ticket should still DM the requester")
	}
}

func TestReplyAppendsTranscriptAndDMs(t *testing.T) {
	manager, store, messenger, _, _ := newTestManager(t)

	ticket, _ := manager.Open(context.Background(), "u1", "alex", "sujet")
	if err := manager.Reply(context.Background(), ticket.ID, "u1", "", "Sam", "on regarde ça"); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Ticket(ticket.ID)
	if len(got.Messages) != 1 {
		t.Fatalf("transcript = %+v", got.Messages)
	}
	message := got.Messages[0]
	if message.From != storage.MessageFromStaff || message.Author != "Sam" || message.Content != "on regarde ça" {
		t.Fatalf("message = %+v", message)
	}
	if len(messenger.dms) != 2 {
		t.Fatalf("reply DM missing: %v", messenger.dms)
	}
}

func TestReplyToMissingTicketStillDMs(t *testing.T) {
	manager, _, messenger, _, _ := newTestManager(t)

	if err := manager.Reply(context.Background(), "t_absent", "u1", "", "Sam", "hello"); err != nil {
		t.Fatal(err)
	}
	if len(messenger.dms) != 1 {
		t.Fatal("reply to absent ticket should still DM")
	}
}

func TestReplyDMFailure(t *testing.T) {
	manager, store, messenger, _, _ := newTestManager(t)

	ticket, _ := manager.Open(context.Background(), "u1", "alex", "a")
	messenger.failDM = true

	err := manager.Reply(context.Background(), ticket.ID, "u1", "", "Sam", "hello")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("err = %v", err)
	}
	// The transcript append is not rolled back.
	got, _ := store.Ticket(ticket.ID)
	if len(got.Messages) != 1 {
		t.Fatal("transcript lost on DM failure")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	manager, store, _, _, clock := newTestManager(t)

	ticket, _ := manager.Open(context.Background(), "u1", "alex", "a")
	if err := manager.Close(context.Background(), ticket.ID, "u1", "Sam"); err != nil {
		t.Fatal(err)
	}

	first, _ := store.Ticket(ticket.ID)
	if first.Status != storage.TicketClosed || first.ClosedBy != "Sam" || first.ClosedAt == nil {
		t.Fatalf("close not recorded: %+v", first)
	}

	clock.now = clock.now.Add(time.Hour)
	if err := manager.Close(context.Background(), ticket.ID, "u1", "Autre"); err != nil {
		t.Fatal(err)
	}
	second, _ := store.Ticket(ticket.ID)
	if !second.ClosedAt.Equal(*first.ClosedAt) || second.ClosedBy != "Sam" {
		t.Fatalf("second close mutated the record: %+v", second)
	}
}

func TestCloseMissingTicketStillDMs(t *testing.T) {
	manager, _, messenger, _, _ := newTestManager(t)

	if err := manager.Close(context.Background(), "t_absent", "u1", "Sam"); err != nil {
		t.Fatal(err)
	}
	if len(messenger.dms) != 1 {
		t.Fatal("close on absent ticket should still DM")
	}
}

func TestAppendUserMessage(t *testing.T) {
	manager, store, _, notifier, _ := newTestManager(t)

	ticket, _ := manager.Open(context.Background(), "u1", "alex", "a")
	got, ok := manager.AppendUserMessage(context.Background(), "u1", "alex", "des précisions")
	if !ok || got.ID != ticket.ID {
		t.Fatalf("append = %+v, %v", got, ok)
	}

	persisted, _ := store.Ticket(ticket.ID)
	if len(persisted.Messages) != 1 || persisted.Messages[0].From != storage.MessageFromUser {
		t.Fatalf("transcript = %+v", persisted.Messages)
	}
	if notifier.actions[len(notifier.actions)-1] != "ticketMessage" {
		t.Fatalf("panel actions = %v", notifier.actions)
	}
}

func TestAppendUserMessageWithoutOpenTicket(t *testing.T) {
	manager, _, _, notifier, _ := newTestManager(t)

	if _, ok := manager.AppendUserMessage(context.Background(), "u1", "alex", "hello"); ok {
		t.Fatal("append without an open ticket should report false")
	}
	if len(notifier.actions) != 0 {
		t.Fatalf("panel notified: %v", notifier.actions)
	}
}
