package moderation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fty-club-bot/internal/botlog"
	"fty-club-bot/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type fakeGateway struct {
	memberPresent bool
	kicked        []string
	banned        []string
	unbanned      []string
	rolesAdded    map[string][]string
}

func (f *fakeGateway) MemberExists(ctx context.Context, userID string) (bool, error) {
	return f.memberPresent, nil
}

func (f *fakeGateway) Kick(ctx context.Context, userID, reason string) error {
	f.kicked = append(f.kicked, userID)
	return nil
}

func (f *fakeGateway) Ban(ctx context.Context, userID, reason string) error {
	f.banned = append(f.banned, userID)
	return nil
}

func (f *fakeGateway) Unban(ctx context.Context, userID, reason string) error {
	f.unbanned = append(f.unbanned, userID)
	return nil
}

func (f *fakeGateway) AddRole(ctx context.Context, userID, roleID string) error {
	if f.rolesAdded == nil {
		f.rolesAdded = map[string][]string{}
	}
	f.rolesAdded[userID] = append(f.rolesAdded[userID], roleID)
	return nil
}

type fakeMessenger struct {
	failDM   bool
	dms      []string
	channels []string
}

func (f *fakeMessenger) SendDM(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	if f.failDM {
		return errors.New("dm closed")
	}
	f.dms = append(f.dms, userID)
	return nil
}

func (f *fakeMessenger) SendChannelEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	f.channels = append(f.channels, channelID)
	return nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *storage.Store, *fakeGateway, *fakeMessenger) {
	t.Helper()
	dir := t.TempDir()
	store := storage.New(filepath.Join(dir, "config.json"), filepath.Join(dir, "tickets.json"), zap.NewNop())
	gateway := &fakeGateway{memberPresent: true}
	messenger := &fakeMessenger{}
	d := NewDispatcher(store, gateway, messenger, botlog.New(10, zap.NewNop()))
	return d, store, gateway, messenger
}

func configureSanctionsChannel(store *storage.Store) {
	cfg := store.ServerConfig()
	cfg.Channels["sanctions"] = "chan-sanctions"
	store.SaveServerConfig(cfg)
}

func TestApplyWarn(t *testing.T) {
	d, store, gateway, messenger := newTestDispatcher(t)
	configureSanctionsChannel(store)

	if err := d.Apply(context.Background(), "warn", "u1", "spam", "Sam"); err != nil {
		t.Fatal(err)
	}
	if len(messenger.dms) != 1 || messenger.dms[0] != "u1" {
		t.Fatalf("dms = %v", messenger.dms)
	}
	if len(messenger.channels) != 1 || messenger.channels[0] != "chan-sanctions" {
		t.Fatalf("channels = %v", messenger.channels)
	}
	if len(gateway.kicked)+len(gateway.banned) != 0 {
		t.Fatal("warn must not touch the gateway")
	}
}

func TestApplyWarnWithClosedDMsSucceeds(t *testing.T) {
	d, _, _, messenger := newTestDispatcher(t)
	messenger.failDM = true

	if err := d.Apply(context.Background(), "warn", "u1", "spam", "Sam"); err != nil {
		t.Fatalf("warn is best-effort: %v", err)
	}
}

func TestApplyKick(t *testing.T) {
	d, store, gateway, messenger := newTestDispatcher(t)
	configureSanctionsChannel(store)

	if err := d.Apply(context.Background(), "kick", "u1", "triche", "Sam"); err != nil {
		t.Fatal(err)
	}
	if len(gateway.kicked) != 1 || gateway.kicked[0] != "u1" {
		t.Fatalf("kicked = %v", gateway.kicked)
	}
	if len(messenger.dms) != 1 {
		t.Fatal("pre-kick DM missing")
	}
}

func TestApplyKickMemberAbsent(t *testing.T) {
	d, _, gateway, _ := newTestDispatcher(t)
	gateway.memberPresent = false

	err := d.Apply(context.Background(), "kick", "u1", "triche", "Sam")
	if !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("err = %v", err)
	}
	if len(gateway.kicked) != 0 {
		t.Fatal("kick attempted on absent member")
	}
}

func TestApplyBanWorksWithoutMembership(t *testing.T) {
	d, _, gateway, messenger := newTestDispatcher(t)
	gateway.memberPresent = false
	messenger.failDM = true

	if err := d.Apply(context.Background(), "ban", "u1", "raid", "Sam"); err != nil {
		t.Fatal(err)
	}
	if len(gateway.banned) != 1 {
		t.Fatalf("banned = %v", gateway.banned)
	}
}

func TestApplyUnban(t *testing.T) {
	d, _, gateway, messenger := newTestDispatcher(t)

	if err := d.Apply(context.Background(), "unban", "u1", "", "Sam"); err != nil {
		t.Fatal(err)
	}
	if len(gateway.unbanned) != 1 {
		t.Fatalf("unbanned = %v", gateway.unbanned)
	}
	if len(messenger.dms) != 0 {
		t.Fatal("unban should not DM")
	}
}

func TestApplyMute(t *testing.T) {
	d, store, gateway, messenger := newTestDispatcher(t)
	cfg := store.ServerConfig()
	cfg.Roles["muted"] = "role-muted"
	store.SaveServerConfig(cfg)

	if err := d.Apply(context.Background(), "mute", "u1", "insultes", "Sam"); err != nil {
		t.Fatal(err)
	}
	if roles := gateway.rolesAdded["u1"]; len(roles) != 1 || roles[0] != "role-muted" {
		t.Fatalf("roles = %v", gateway.rolesAdded)
	}
	if len(messenger.dms) != 1 {
		t.Fatal("mute DM missing")
	}
}

func TestApplyMuteWithoutRole(t *testing.T) {
	d, _, gateway, _ := newTestDispatcher(t)

	err := d.Apply(context.Background(), "mute", "u1", "insultes", "Sam")
	if !errors.Is(err, ErrRoleNotConfigured) {
		t.Fatalf("err = %v", err)
	}
	if len(gateway.rolesAdded) != 0 {
		t.Fatal("role added without configuration")
	}
}

func TestApplyUnknownAction(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)

	err := d.Apply(context.Background(), "explode", "u1", "", "Sam")
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("err = %v", err)
	}
}

func TestMetaFallback(t *testing.T) {
	meta := Meta("suspension-custom")
	if meta.Label != "suspension-custom" {
		t.Fatalf("fallback label = %q", meta.Label)
	}
	if known := Meta("ban"); known.Color != 0xEF4444 {
		t.Fatalf("ban color = %#x", known.Color)
	}
}
