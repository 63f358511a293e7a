package bot

import (
	"context"
	"fmt"
	"time"

	"fty-club-bot/internal/botlog"
	"fty-club-bot/internal/modules/antidouble"
	"fty-club-bot/internal/modules/antilink"
	"fty-club-bot/internal/monitoring"
	"fty-club-bot/internal/panel"
	"fty-club-bot/internal/storage"
	"fty-club-bot/internal/tickets"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	colorPrimary = 0x9333EA
	colorRaid    = 0xEF4444
	colorWarn    = 0xF59E0B
	colorSuccess = 0x22C55E
)

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	monitoring.DiscordEvents.WithLabelValues("ready").Inc()
	b.status.SetReady(true)
	b.refreshCounts()

	activity := "FTY Club Pro | /site"
	if err := s.UpdateGameStatus(0, activity); err != nil {
		b.logger.Warn("update presence", zap.Error(err))
	}
	b.status.SetActivity(activity)

	b.readyOnce.Do(func() {
		if err := b.registerCommands(); err != nil {
			b.logger.Error("register commands", zap.Error(err))
		}
		go b.heartbeatLoop()
	})

	b.ring.Log(botlog.LevelSuccess, fmt.Sprintf("✅ Bot connecté: %s", r.User.Username))
}

func (b *Bot) refreshCounts() {
	guilds := len(b.session.State.Guilds)
	members := 0
	for _, guild := range b.session.State.Guilds {
		members += guild.MemberCount
	}
	b.status.SetCounts(guilds, members)
}

// heartbeatLoop keeps the panel's connection indicator alive and
// refreshes the cached counts.
func (b *Bot) heartbeatLoop() {
	ticker := time.NewTicker(panel.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stopHeartbeat:
			return
		case <-ticker.C:
			b.refreshCounts()
			snapshot := b.status.Snapshot()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			_ = b.panel.Send(ctx, "heartbeat", map[string]any{
				"guilds":  snapshot.Guilds,
				"members": snapshot.Members,
				"uptime":  snapshot.Uptime,
				"ping":    b.Latency().Milliseconds(),
			})
			cancel()
		}
	}
}

func (b *Bot) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if b.cfg.GuildID != "" && m.GuildID != b.cfg.GuildID {
		return
	}
	monitoring.DiscordEvents.WithLabelValues("guild_member_add").Inc()
	b.refreshCounts()

	cfg := b.store.ServerConfig()
	displayName := memberDisplayName(m.Member)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	decision := b.raid.HandleJoin(m.GuildID, m.User.ID, displayName, cfg.AntiRaid)
	if decision.Trigger {
		b.handleRaid(ctx, m, cfg, decision.Action, len(decision.Burst), decision.WindowSeconds)
		return
	}

	if cfg.AntiDouble.Enabled && !m.User.Bot {
		b.handleDoubleScan(ctx, m, cfg, displayName)
	}

	b.sendWelcome(ctx, m, cfg)
}

func (b *Bot) handleRaid(ctx context.Context, m *discordgo.GuildMemberAdd, cfg storage.ServerConfig, action string, burst, windowSeconds int) {
	monitoring.Detections.WithLabelValues("antiraid").Inc()

	reason := "Anti-Raid automatique"
	var err error
	switch action {
	case storage.ActionBan:
		err = b.Ban(ctx, m.User.ID, reason)
	default:
		err = b.Kick(ctx, m.User.ID, reason)
	}
	if err != nil {
		b.logger.Error("apply raid sanction", zap.String("user", m.User.ID), zap.Error(err))
	}

	b.ring.Log(botlog.LevelWarn, fmt.Sprintf("🛡️ Anti-Raid: %s sanctionné (%s), %d arrivées en %ds",
		m.User.Username, action, burst, windowSeconds))

	logChannel := cfg.Channels["logs"]
	if logChannel == "" {
		return
	}
	embed := &discordgo.MessageEmbed{
		Title: "🛡️ Alerte Anti-Raid",
		Description: fmt.Sprintf("**Membre:** %s (<@%s>)\n**Sanction:** %s\n**Détection:** %d arrivées en %d secondes",
			m.User.Username, m.User.ID, action, burst, windowSeconds),
		Color:     colorRaid,
		Timestamp: time.Now().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "FTY Club Pro | Protection"},
	}
	_ = b.SendChannelEmbed(ctx, logChannel, embed)
}

func (b *Bot) handleDoubleScan(ctx context.Context, m *discordgo.GuildMemberAdd, cfg storage.ServerConfig, displayName string) {
	guild, err := b.session.State.Guild(m.GuildID)
	if err != nil {
		return
	}
	existing := make([]antidouble.Member, 0, len(guild.Members))
	for _, member := range guild.Members {
		existing = append(existing, antidouble.Member{
			ID:          member.User.ID,
			DisplayName: memberDisplayName(member),
			Bot:         member.User.Bot,
		})
	}

	match, found := b.double.Scan(m.User.ID, displayName, existing)
	if !found {
		return
	}
	monitoring.Detections.WithLabelValues("antidouble").Inc()
	b.ring.Log(botlog.LevelWarn, fmt.Sprintf("👥 Double compte suspect: %s ressemble à %s (%.0f%%)",
		displayName, match.DisplayName, match.Score*100))

	logChannel := cfg.Channels["logs"]
	if logChannel == "" {
		return
	}
	embed := &discordgo.MessageEmbed{
		Title: "👥 Double Compte Suspect",
		Description: fmt.Sprintf("**Nouveau:** %s (<@%s>)\n**Ressemble à:** %s (<@%s>)\n**Similarité:** %.0f%%",
			displayName, m.User.ID, match.DisplayName, match.UserID, match.Score*100),
		Color:     colorWarn,
		Timestamp: time.Now().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "FTY Club Pro | Protection"},
	}
	_ = b.SendChannelEmbed(ctx, logChannel, embed)
}

func (b *Bot) sendWelcome(ctx context.Context, m *discordgo.GuildMemberAdd, cfg storage.ServerConfig) {
	channelID := cfg.Channels["bienvenue"]
	if channelID == "" {
		return
	}
	embed := &discordgo.MessageEmbed{
		Title: "👋 Bienvenue au FTY Club Pro !",
		Description: fmt.Sprintf("Bienvenue <@%s> !\n\n"+
			"🌐 Découvre le club: %s\n"+
			"🎫 Besoin d'aide ? Utilise `/ticket`", m.User.ID, b.cfg.SiteURL),
		Color:     colorPrimary,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: m.User.AvatarURL("128")},
		Timestamp: time.Now().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "FTY Club Pro"},
	}
	_ = b.SendChannelEmbed(ctx, channelID, embed)
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	monitoring.DiscordEvents.WithLabelValues("message_create").Inc()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if m.GuildID == "" {
		b.handleDirectMessage(ctx, m)
		return
	}

	cfg := b.store.ServerConfig()
	verdict := antilink.Evaluate(m.Content, b.isExempt(m.Member), cfg.AntiLink)
	if !verdict.Delete {
		return
	}

	monitoring.Detections.WithLabelValues("antilink").Inc()
	if err := s.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
		b.logger.Warn("delete link message", zap.Error(err))
		return
	}
	b.ring.Log(botlog.LevelWarn, fmt.Sprintf("🔗 Lien supprimé de %s (%s)", m.Author.Username, verdict.Host))

	warning, err := s.ChannelMessageSend(m.ChannelID,
		fmt.Sprintf("⚠️ <@%s>, les liens ne sont pas autorisés ici.", m.Author.ID))
	if err != nil {
		return
	}
	time.AfterFunc(5*time.Second, func() {
		_ = s.ChannelMessageDelete(m.ChannelID, warning.ID)
	})
}

// handleDirectMessage routes a user's DM into their open ticket
// transcript. DMs without an open ticket are ignored.
func (b *Bot) handleDirectMessage(ctx context.Context, m *discordgo.MessageCreate) {
	if b.tickets == nil || m.Content == "" {
		return
	}
	ticket, ok := b.tickets.AppendUserMessage(ctx, m.Author.ID, m.Author.Username, m.Content)
	if !ok {
		return
	}
	b.ring.Log(botlog.LevelDiscord, fmt.Sprintf("💬 Message ticket %s de %s", ticket.ID, m.Author.Username))
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	monitoring.DiscordEvents.WithLabelValues("interaction_create").Inc()

	switch i.ApplicationCommandData().Name {
	case "site":
		b.handleSiteCommand(s, i)
	case "status":
		b.handleStatusCommand(s, i)
	case "setup":
		b.handleSetupCommand(s, i)
	case "ticket":
		b.handleTicketCommand(s, i)
	}
}

func (b *Bot) handleSiteCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	embed := &discordgo.MessageEmbed{
		Title:       "🌐 FTY Club Pro",
		Description: fmt.Sprintf("Retrouve le club, les matchs et le recrutement sur notre site :\n\n**%s**", b.cfg.SiteURL),
		Color:       colorPrimary,
		Footer:      &discordgo.MessageEmbedFooter{Text: "FTY Club Pro"},
	}
	b.respondEmbed(s, i, embed, false)
}

func (b *Bot) handleStatusCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isPrivileged(i) {
		b.respondText(s, i, "❌ Commande réservée au staff.", true)
		return
	}
	snapshot := b.status.Snapshot()
	cfg := b.store.ServerConfig()
	embed := &discordgo.MessageEmbed{
		Title: "📊 Statut du Bot",
		Color: colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Uptime", Value: formatUptime(snapshot.Uptime), Inline: true},
			{Name: "Ping", Value: fmt.Sprintf("%dms", b.Latency().Milliseconds()), Inline: true},
			{Name: "Membres", Value: fmt.Sprintf("%d", snapshot.Members), Inline: true},
			{Name: "Anti-Raid", Value: onOff(cfg.AntiRaid.Enabled), Inline: true},
			{Name: "Anti-Lien", Value: onOff(cfg.AntiLink.Enabled), Inline: true},
			{Name: "Anti-Double", Value: onOff(cfg.AntiDouble.Enabled), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "FTY Club Pro"},
	}
	b.respondEmbed(s, i, embed, false)
}

func (b *Bot) handleSetupCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.isPrivileged(i) {
		b.respondText(s, i, "❌ Seul un administrateur peut lancer l'installation.", true)
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		return
	}

	result, err := b.RunSetup(context.Background(), i.GuildID)
	if err != nil {
		message := fmt.Sprintf("❌ Installation échouée: %v", err)
		_, _ = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &message})
		return
	}

	embed := &discordgo.MessageEmbed{
		Title: "✅ Serveur Installé",
		Description: fmt.Sprintf("**Rôles:** %d créés, %d existants\n**Salons:** %d créés, %d existants\n\n"+
			"Les protections Anti-Raid, Anti-Lien et Anti-Double sont actives.",
			result.RolesCreated, result.RolesReused, result.ChannelsCreated, result.ChannelsReused),
		Color:     colorSuccess,
		Timestamp: time.Now().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "FTY Club Pro | Installation"},
	}
	_, _ = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
}

// isPrivileged gates the staff commands: the configured super admin,
// or a member holding the administrator permission.
func (b *Bot) isPrivileged(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	if b.cfg.SuperAdminID != "" && i.Member.User != nil && i.Member.User.ID == b.cfg.SuperAdminID {
		return true
	}
	return i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

func (b *Bot) handleTicketCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	if user == nil {
		return
	}
	subject := ""
	for _, option := range i.ApplicationCommandData().Options {
		if option.Name == "sujet" {
			subject = option.StringValue()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	ticket, err := b.tickets.Open(ctx, user.ID, user.Username, subject)
	switch {
	case err == tickets.ErrDuplicateOpenTicket:
		b.respondText(s, i, fmt.Sprintf("⚠️ Tu as déjà un ticket ouvert (`%s`). Réponds en DM pour continuer.", ticket.ID), true)
	case err == tickets.ErrDeliveryFailed:
		b.respondText(s, i, "❌ Impossible de t'envoyer un DM. Active tes messages privés puis réessaie.", true)
	case err != nil:
		b.respondText(s, i, "❌ Une erreur est survenue, réessaie plus tard.", true)
	default:
		b.respondText(s, i, fmt.Sprintf("✅ Ticket `%s` ouvert ! Regarde tes DM.", ticket.ID), true)
	}
}

func (b *Bot) respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func (b *Bot) respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

func memberDisplayName(member *discordgo.Member) string {
	if member == nil || member.User == nil {
		return ""
	}
	if member.Nick != "" {
		return member.Nick
	}
	return member.User.Username
}

func formatUptime(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm %ds", minutes, int(d.Seconds())%60)
}

func onOff(enabled bool) string {
	if enabled {
		return "🟢 Actif"
	}
	return "🔴 Inactif"
}
