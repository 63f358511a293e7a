package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

var adminPermission int64 = discordgo.PermissionAdministrator

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "site",
			Description: "Affiche le lien du site FTY Club Pro",
		},
		{
			Name:                     "status",
			Description:              "Affiche le statut du bot et des protections",
			DefaultMemberPermissions: &adminPermission,
		},
		{
			Name:                     "setup",
			Description:              "Installe le serveur FTY Club Pro (rôles, salons, protections)",
			DefaultMemberPermissions: &adminPermission,
		},
		{
			Name:        "ticket",
			Description: "Ouvre un ticket support en message privé",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "sujet",
					Description: "Sujet de ta demande",
					Required:    false,
				},
			},
		},
	}
}

// registerCommands overwrites the guild's command set wholesale, so
// removed commands disappear on restart.
func (b *Bot) registerCommands() error {
	appID := b.cfg.AppID
	if appID == "" && b.session.State.User != nil {
		appID = b.session.State.User.ID
	}

	definitions := commandDefinitions()
	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.GuildID, definitions); err != nil {
		return fmt.Errorf("overwrite commands: %w", err)
	}

	names := make([]string, len(definitions))
	for i, definition := range definitions {
		names[i] = definition.Name
	}
	b.status.SetCommands(names)
	return nil
}
