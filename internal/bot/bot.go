// Package bot owns the Discord gateway session: event handlers, slash
// commands, guild provisioning, and the thin messaging/moderation
// surface the other packages call through.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fty-club-bot/internal/botlog"
	"fty-club-bot/internal/config"
	"fty-club-bot/internal/modules/antidouble"
	"fty-club-bot/internal/modules/antiraid"
	"fty-club-bot/internal/panel"
	"fty-club-bot/internal/storage"
	"fty-club-bot/internal/tickets"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	session *discordgo.Session
	cfg     config.Config
	store   *storage.Store
	ring    *botlog.Ring
	panel   *panel.Client
	raid    *antiraid.Module
	double  antidouble.Matcher
	status  *Status
	logger  *zap.Logger

	tickets *tickets.Manager

	// onReady fires again on gateway resume; only the first one
	// registers commands and starts the heartbeat.
	readyOnce     sync.Once
	stopHeartbeat chan struct{}
}

func New(cfg config.Config, store *storage.Store, ring *botlog.Ring, panelClient *panel.Client,
	raid *antiraid.Module, double antidouble.Matcher, logger *zap.Logger) (*Bot, error) {

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildMessages |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent
	session.State.TrackMembers = true

	b := &Bot{
		session:       session,
		cfg:           cfg,
		store:         store,
		ring:          ring,
		panel:         panelClient,
		raid:          raid,
		double:        double,
		status:        NewStatus(),
		logger:        logger,
		stopHeartbeat: make(chan struct{}),
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onGuildMemberAdd)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onInteractionCreate)

	return b, nil
}

// SetTickets wires the ticket manager after construction; the manager
// itself needs the bot as its messenger.
func (b *Bot) SetTickets(manager *tickets.Manager) {
	b.tickets = manager
}

func (b *Bot) Status() *Status {
	return b.status
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	close(b.stopHeartbeat)
	b.status.SetReady(false)
	return b.session.Close()
}

// Ready reports whether the gateway session is up, for health checks.
func (b *Bot) Ready() bool {
	return b.status.Ready()
}

// UpdateActivity changes the presence text shown under the bot's name.
func (b *Bot) UpdateActivity(activity string) error {
	if err := b.session.UpdateGameStatus(0, activity); err != nil {
		return fmt.Errorf("update presence: %w", err)
	}
	b.status.SetActivity(activity)
	return nil
}

// Latency is the gateway heartbeat round trip.
func (b *Bot) Latency() time.Duration {
	return b.session.HeartbeatLatency()
}

// SendDM delivers an embed to the user's DM channel. Users with closed
// DMs surface here as an error.
func (b *Bot) SendDM(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	channel, err := b.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("open dm channel: %w", err)
	}
	if _, err := b.session.ChannelMessageSendEmbed(channel.ID, embed); err != nil {
		return fmt.Errorf("send dm: %w", err)
	}
	return nil
}

func (b *Bot) SendChannelEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		return fmt.Errorf("send embed: %w", err)
	}
	return nil
}

// SendAnnouncement posts an embed with optional plain content above it
// (mentions live in the content, embeds cannot ping).
func (b *Bot) SendAnnouncement(ctx context.Context, channelID, content string, embed *discordgo.MessageEmbed) error {
	_, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		Embeds:  []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		return fmt.Errorf("send announcement: %w", err)
	}
	return nil
}

// MemberExists checks the cache first and falls back to the REST API.
func (b *Bot) MemberExists(ctx context.Context, userID string) (bool, error) {
	if member, err := b.session.State.Member(b.cfg.GuildID, userID); err == nil && member != nil {
		return true, nil
	}
	member, err := b.session.GuildMember(b.cfg.GuildID, userID)
	if err != nil {
		if restErr, ok := err.(*discordgo.RESTError); ok && restErr.Response != nil && restErr.Response.StatusCode == 404 {
			return false, nil
		}
		return false, err
	}
	return member != nil, nil
}

func (b *Bot) Kick(ctx context.Context, userID, reason string) error {
	return b.session.GuildMemberDeleteWithReason(b.cfg.GuildID, userID, reason)
}

func (b *Bot) Ban(ctx context.Context, userID, reason string) error {
	return b.session.GuildBanCreateWithReason(b.cfg.GuildID, userID, reason, 0)
}

func (b *Bot) Unban(ctx context.Context, userID, reason string) error {
	return b.session.GuildBanDelete(b.cfg.GuildID, userID)
}

func (b *Bot) AddRole(ctx context.Context, userID, roleID string) error {
	return b.session.GuildMemberRoleAdd(b.cfg.GuildID, userID, roleID)
}

func (b *Bot) RemoveRole(ctx context.Context, userID, roleID string) error {
	return b.session.GuildMemberRoleRemove(b.cfg.GuildID, userID, roleID)
}

type ChannelInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// TextChannels lists the guild's text channels with their parent
// category name, for the panel's channel picker.
func (b *Bot) TextChannels() ([]ChannelInfo, error) {
	channels, err := b.session.GuildChannels(b.cfg.GuildID)
	if err != nil {
		return nil, err
	}

	categories := make(map[string]string)
	for _, channel := range channels {
		if channel.Type == discordgo.ChannelTypeGuildCategory {
			categories[channel.ID] = channel.Name
		}
	}

	out := make([]ChannelInfo, 0, len(channels))
	for _, channel := range channels {
		if channel.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		out = append(out, ChannelInfo{
			ID:       channel.ID,
			Name:     channel.Name,
			Category: categories[channel.ParentID],
		})
	}
	return out, nil
}

type RoleInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color int    `json:"color"`
}

// GuildRoles lists the guild's roles minus @everyone, for the panel's
// role picker.
func (b *Bot) GuildRoles() ([]RoleInfo, error) {
	roles, err := b.session.GuildRoles(b.cfg.GuildID)
	if err != nil {
		return nil, err
	}
	out := make([]RoleInfo, 0, len(roles))
	for _, role := range roles {
		if role.Name == "@everyone" {
			continue
		}
		out = append(out, RoleInfo{ID: role.ID, Name: role.Name, Color: role.Color})
	}
	return out, nil
}

// isExempt reports whether the member bypasses the link filter:
// administrators and holders of a configured staff role.
func (b *Bot) isExempt(member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	if b.memberHasAdmin(member) {
		return true
	}

	staff := b.store.ServerConfig().Roles
	for _, key := range []string{"owner", "admin", "moderateur", "support"} {
		roleID := staff[key]
		if roleID == "" {
			continue
		}
		for _, held := range member.Roles {
			if held == roleID {
				return true
			}
		}
	}
	return false
}

func (b *Bot) memberHasAdmin(member *discordgo.Member) bool {
	guild, err := b.session.State.Guild(b.cfg.GuildID)
	if err != nil {
		return false
	}
	for _, roleID := range member.Roles {
		for _, role := range guild.Roles {
			if role.ID == roleID && role.Permissions&discordgo.PermissionAdministrator != 0 {
				return true
			}
		}
	}
	return false
}
