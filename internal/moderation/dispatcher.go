// Package moderation applies sanctions requested by staff: warn,
// kick, ban, unban, mute. Notification fan-out (DM, sanction-log
// embed) is fire-and-forget; a failed notification never reverses or
// blocks the sanction itself.
package moderation

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
	// ErrMemberNotFound reports a kick or mute target absent from the
	// guild. No mutation is attempted.
	ErrMemberNotFound = errors.New("member not found in guild")
	// ErrRoleNotConfigured reports a mute with no muted role set up.
	ErrRoleNotConfigured = errors.New("muted role not configured")
	// ErrUnknownAction rejects an unrecognized action keyword.
	ErrUnknownAction = errors.New("unknown moderation action")
)

// Gateway is the slice of the chat platform the dispatcher needs.
type Gateway interface {
	MemberExists(ctx context.Context, userID string) (bool, error)
	Kick(ctx context.Context, userID, reason string) error
	Ban(ctx context.Context, userID, reason string) error
	Unban(ctx context.Context, userID, reason string) error
	AddRole(ctx context.Context, userID, roleID string) error
}

type Messenger interface {
	SendDM(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error
	SendChannelEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
}

// ActionMeta drives the embeds for each sanction type.
type ActionMeta struct {
	Emoji string
	Label string
	Color int
}

var actionMeta = map[string]ActionMeta{
	"warn":    {Emoji: "⚠️", Label: "Avertissement", Color: 0xF59E0B},
	"kick":    {Emoji: "👢", Label: "Expulsion", Color: 0xF97316},
	"ban":     {Emoji: "🔨", Label: "Bannissement", Color: 0xEF4444},
	"mute":    {Emoji: "🔇", Label: "Mute", Color: 0x6B7280},
	"unban":   {Emoji: "✅", Label: "Débannissement", Color: 0x22C55E},
	"suspend": {Emoji: "⏸️", Label: "Suspension", Color: 0xF59E0B},
}

// Meta returns the embed metadata for a sanction type, with a generic
// fallback for types only the panel knows about.
func Meta(action string) ActionMeta {
	if meta, ok := actionMeta[action]; ok {
		return meta
	}
	return ActionMeta{Emoji: "⚠️", Label: action, Color: 0x9333EA}
}

type Dispatcher struct {
	store     *storage.Store
	gateway   Gateway
	messenger Messenger
	ring      *botlog.Ring
}

func NewDispatcher(store *storage.Store, gateway Gateway, messenger Messenger, ring *botlog.Ring) *Dispatcher {
	return &Dispatcher{store: store, gateway: gateway, messenger: messenger, ring: ring}
}

// Apply performs the requested sanction. Precondition failures
// (absent member, unconfigured role) are reported before any
// mutation; notification failures are swallowed.
func (d *Dispatcher) Apply(ctx context.Context, action, userID, reason, moderator string) error {
	if reason == "" {
		reason = "Non précisée"
	}
	if moderator == "" {
		moderator = "Staff"
	}

	var err error
	switch action {
	case "warn":
		d.notifyTarget(ctx, action, userID, reason, moderator)
		d.sanctionLog(ctx, action, userID, reason, moderator)
	case "kick":
		err = d.kick(ctx, userID, reason, moderator)
	case "ban":
		err = d.ban(ctx, userID, reason, moderator)
	case "unban":
		err = d.unban(ctx, userID, reason)
	case "mute":
		err = d.mute(ctx, userID, reason, moderator)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	if err != nil {
		return err
	}

	monitoring.ModerationActions.WithLabelValues(action).Inc()
	meta := Meta(action)
	d.ring.Log(botlog.LevelWarn, fmt.Sprintf("%s %s: %s par %s", meta.Emoji, meta.Label, userID, moderator))
	return nil
}

func (d *Dispatcher) kick(ctx context.Context, userID, reason, moderator string) error {
	exists, err := d.gateway.MemberExists(ctx, userID)
	if err != nil || !exists {
		return ErrMemberNotFound
	}

	d.notifyTarget(ctx, "kick", userID, reason, moderator)
	if err := d.gateway.Kick(ctx, userID, reason); err != nil {
		return err
	}
	d.sanctionLog(ctx, "kick", userID, reason, moderator)
	return nil
}

func (d *Dispatcher) ban(ctx context.Context, userID, reason, moderator string) error {
	// A ban may target an id that is not currently a member.
	d.notifyTarget(ctx, "ban", userID, reason, moderator)
	if err := d.gateway.Ban(ctx, userID, reason); err != nil {
		return err
	}
	d.sanctionLog(ctx, "ban", userID, reason, moderator)
	return nil
}

func (d *Dispatcher) unban(ctx context.Context, userID, reason string) error {
	// Log-only notification: the target cannot receive a DM before
	// rejoining.
	return d.gateway.Unban(ctx, userID, reason)
}

func (d *Dispatcher) mute(ctx context.Context, userID, reason, moderator string) error {
	exists, err := d.gateway.MemberExists(ctx, userID)
	if err != nil || !exists {
		return ErrMemberNotFound
	}
	mutedRole := d.store.ServerConfig().Roles["muted"]
	if mutedRole == "" {
		return ErrRoleNotConfigured
	}
	if err := d.gateway.AddRole(ctx, userID, mutedRole); err != nil {
		return err
	}
	d.notifyTarget(ctx, "mute", userID, reason, moderator)
	return nil
}

func (d *Dispatcher) notifyTarget(ctx context.Context, action, userID, reason, moderator string) {
	meta := Meta(action)
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s %s - FTY Club Pro", meta.Emoji, meta.Label),
		Description: fmt.Sprintf("**Raison:** %s\n**Modérateur:** %s", reason, moderator),
		Color:       meta.Color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "FTY Club Pro | Modération"},
	}
	_ = d.messenger.SendDM(ctx, userID, embed)
}

func (d *Dispatcher) sanctionLog(ctx context.Context, action, userID, reason, moderator string) {
	channelID := d.store.ServerConfig().Channels["sanctions"]
	if channelID == "" {
		return
	}
	meta := Meta(action)
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s %s", meta.Emoji, meta.Label),
		Description: fmt.Sprintf("**Membre:** <@%s>\n**Raison:** %s\n**Modérateur:** %s", userID, reason, moderator),
		Color:       meta.Color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "FTY Club Pro | Modération"},
	}
	_ = d.messenger.SendChannelEmbed(ctx, channelID, embed)
}
