package bot

import (
	"context"
	"fmt"

	"fty-club-bot/internal/botlog"
	"fty-club-bot/internal/storage"

	"github.com/bwmarrin/discordgo"
)

type roleDef struct {
	key   string
	name  string
	color int
	hoist bool
}

var roleDefs = []roleDef{
	{key: "owner", name: "👑 Président", color: 0xF59E0B, hoist: true},
	{key: "admin", name: "⚡ Admin", color: 0xEF4444, hoist: true},
	{key: "moderateur", name: "🛡️ Modérateur", color: 0x3B82F6, hoist: true},
	{key: "support", name: "🎧 Support", color: 0x22C55E, hoist: true},
	{key: "capitaine", name: "🎖️ Capitaine", color: 0x9333EA, hoist: true},
	{key: "joueur", name: "⚽ Joueur", color: 0x06B6D4, hoist: true},
	{key: "membre", name: "👤 Membre", color: 0x6B7280, hoist: false},
	{key: "muted", name: "🔇 Muted", color: 0x374151, hoist: false},
}

type channelDef struct {
	key  string
	name string
}

type categoryDef struct {
	key      string
	name     string
	staff    bool
	channels []channelDef
}

var categoryDefs = []categoryDef{
	{
		key:  "accueil",
		name: "📌 ACCUEIL",
		channels: []channelDef{
			{key: "bienvenue", name: "👋・bienvenue"},
			{key: "reglement", name: "📜・règlement"},
			{key: "annonces", name: "📢・annonces"},
		},
	},
	{
		key:  "club",
		name: "⚽ CLUB",
		channels: []channelDef{
			{key: "general", name: "💬・général"},
			{key: "matchAnnonce", name: "🏆・annonces-match"},
			{key: "postes", name: "📋・postes"},
			{key: "recrutement", name: "📥・recrutement"},
		},
	},
	{
		key:   "staff",
		name:  "🔒 STAFF",
		staff: true,
		channels: []channelDef{
			{key: "sanctions", name: "⚖️・sanctions"},
			{key: "logs", name: "📁・logs"},
		},
	},
}

type SetupResult struct {
	RolesCreated    int
	RolesReused     int
	ChannelsCreated int
	ChannelsReused  int
}

// RunSetup provisions the guild: the full role set, the category and
// channel layout, then the protection defaults. Re-running is
// idempotent, existing roles and channels are matched by name and
// reused.
func (b *Bot) RunSetup(ctx context.Context, guildID string) (SetupResult, error) {
	if guildID == "" {
		guildID = b.cfg.GuildID
	}

	var result SetupResult
	cfg := b.store.ServerConfig()

	existingRoles, err := b.session.GuildRoles(guildID)
	if err != nil {
		return result, fmt.Errorf("list roles: %w", err)
	}
	rolesByName := make(map[string]*discordgo.Role, len(existingRoles))
	for _, role := range existingRoles {
		rolesByName[role.Name] = role
	}

	for _, def := range roleDefs {
		if existing := rolesByName[def.name]; existing != nil {
			cfg.Roles[def.key] = existing.ID
			result.RolesReused++
			continue
		}
		color := def.color
		hoist := def.hoist
		mentionable := false
		role, err := b.session.GuildRoleCreate(guildID, &discordgo.RoleParams{
			Name:        def.name,
			Color:       &color,
			Hoist:       &hoist,
			Mentionable: &mentionable,
		})
		if err != nil {
			return result, fmt.Errorf("create role %s: %w", def.name, err)
		}
		cfg.Roles[def.key] = role.ID
		result.RolesCreated++
	}

	channels, err := b.session.GuildChannels(guildID)
	if err != nil {
		return result, fmt.Errorf("list channels: %w", err)
	}
	channelsByName := make(map[string]*discordgo.Channel, len(channels))
	for _, channel := range channels {
		channelsByName[channel.Name] = channel
	}

	for _, category := range categoryDefs {
		parentID, created, err := b.ensureCategory(guildID, category, cfg, channelsByName)
		if err != nil {
			return result, err
		}
		if created {
			result.ChannelsCreated++
		} else {
			result.ChannelsReused++
		}
		cfg.Categories[category.key] = parentID

		for _, def := range category.channels {
			if existing := channelsByName[def.name]; existing != nil {
				cfg.Channels[def.key] = existing.ID
				result.ChannelsReused++
				continue
			}
			channel, err := b.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
				Name:     def.name,
				Type:     discordgo.ChannelTypeGuildText,
				ParentID: parentID,
			})
			if err != nil {
				return result, fmt.Errorf("create channel %s: %w", def.name, err)
			}
			cfg.Channels[def.key] = channel.ID
			result.ChannelsCreated++
		}
	}

	cfg.AntiRaid = storage.AntiRaidConfig{Enabled: true, JoinThreshold: 8, JoinWindow: 15, Action: storage.ActionKick}
	cfg.AntiLink = storage.AntiLinkConfig{
		Enabled:   true,
		Whitelist: []string{b.cfg.SiteURL, "discord.com/channels"},
		Action:    storage.ActionDelete,
	}
	cfg.AntiDouble = storage.AntiDoubleConfig{Enabled: true}
	cfg.Configured = true
	b.store.SaveServerConfig(cfg)

	_ = b.panel.Send(ctx, "configUpdate", cfg)
	b.ring.Log(botlog.LevelSuccess, fmt.Sprintf("⚙️ Installation terminée: %d rôles créés, %d salons créés",
		result.RolesCreated, result.ChannelsCreated))
	return result, nil
}

// ensureCategory finds or creates a category. Staff categories are
// hidden from @everyone and opened to the moderator role.
func (b *Bot) ensureCategory(guildID string, category categoryDef, cfg storage.ServerConfig,
	channelsByName map[string]*discordgo.Channel) (string, bool, error) {

	if existing := channelsByName[category.name]; existing != nil {
		return existing.ID, false, nil
	}

	data := discordgo.GuildChannelCreateData{
		Name: category.name,
		Type: discordgo.ChannelTypeGuildCategory,
	}
	if category.staff {
		data.PermissionOverwrites = staffOverwrites(guildID, cfg.Roles["moderateur"])
	}

	channel, err := b.session.GuildChannelCreateComplex(guildID, data)
	if err != nil {
		return "", false, fmt.Errorf("create category %s: %w", category.name, err)
	}
	return channel.ID, true, nil
}

func staffOverwrites(guildID, moderatorRoleID string) []*discordgo.PermissionOverwrite {
	// The @everyone role id equals the guild id.
	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
	}
	if moderatorRoleID != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    moderatorRoleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		})
	}
	return overwrites
}
