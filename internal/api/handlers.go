package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fty-club-bot/internal/botlog"
	"fty-club-bot/internal/moderation"
	"fty-club-bot/internal/storage"
	"fty-club-bot/internal/tickets"

	"github.com/bwmarrin/discordgo"
)

const (
	colorPrimary = 0x9333EA
	colorSuccess = 0x22C55E
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	snapshot := s.bot.Status().Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "online",
		"bot":         "FTY Club Pro",
		"botReady":    snapshot.Ready,
		"maintenance": snapshot.Maintenance,
		"guilds":      snapshot.Guilds,
		"members":     snapshot.Members,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := s.bot.Status().Snapshot()
	open, total := s.store.CountTickets()
	writeJSON(w, http.StatusOK, map[string]any{
		"botReady":       snapshot.Ready,
		"startedAt":      snapshot.StartedAt,
		"uptime":         snapshot.Uptime,
		"guilds":         snapshot.Guilds,
		"members":        snapshot.Members,
		"activity":       snapshot.Activity,
		"maintenance":    snapshot.Maintenance,
		"commands":       snapshot.Commands,
		"ping":           s.bot.Latency().Milliseconds(),
		"panelConnected": s.panel.Connected(),
		"serverConfig":   s.store.ServerConfig(),
		"ticketsOpen":    open,
		"ticketsTotal":   total,
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("level")
	limit := queryInt(r, "limit", 200)
	offset := queryInt(r, "offset", 0)

	entries, total := s.ring.Recent(level, limit, offset)
	writeJSON(w, http.StatusOK, map[string]any{"logs": entries, "total": total})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !s.bot.Ready() {
		writeError(w, http.StatusServiceUnavailable, "Bot non connecté")
		return
	}

	var body struct {
		Activity string `json:"activity"`
	}
	if err := decodeBody(r, &body); err != nil || body.Activity == "" {
		writeError(w, http.StatusBadRequest, "activity requis")
		return
	}
	if err := s.bot.UpdateActivity(body.Activity); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleSendDM(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DiscordID string                  `json:"discordId"`
		Title     string                  `json:"title"`
		Message   string                  `json:"message"`
		Color     json.RawMessage         `json:"color"`
		Embed     *discordgo.MessageEmbed `json:"embed"`
	}
	if err := decodeBody(r, &body); err != nil || body.DiscordID == "" {
		writeError(w, http.StatusBadRequest, "discordId requis")
		return
	}

	embed := body.Embed
	if embed == nil {
		title := body.Title
		if title == "" {
			title = "📨 Message Staff - FTY Club Pro"
		}
		embed = &discordgo.MessageEmbed{
			Title:       title,
			Description: body.Message,
			Color:       parseColor(body.Color, colorPrimary),
			Timestamp:   time.Now().Format(time.RFC3339),
			Footer:      &discordgo.MessageEmbedFooter{Text: "FTY Club Pro"},
		}
	}
	if err := s.bot.SendDM(r.Context(), body.DiscordID, embed); err != nil {
		writeError(w, http.StatusBadGateway, "DM impossible, messages privés fermés ?")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// parseColor accepts either a JSON number or a "#RRGGBB" string, the
// panel sends both depending on the screen.
func parseColor(raw json.RawMessage, fallback int) int {
	if len(raw) == 0 {
		return fallback
	}
	var number int
	if err := json.Unmarshal(raw, &number); err == nil && number > 0 {
		return number
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		text = strings.TrimPrefix(strings.TrimSpace(text), "#")
		if value, err := strconv.ParseInt(text, 16, 32); err == nil {
			return int(value)
		}
	}
	return fallback
}

type announceTarget struct {
	channelKey string
	emoji      string
	color      int
}

var announceTargets = map[string]announceTarget{
	"global":      {channelKey: "annonces", emoji: "📢", color: 0x3B82F6},
	"match":       {channelKey: "matchAnnonce", emoji: "⚽", color: colorSuccess},
	"conference":  {channelKey: "general", emoji: "🎤", color: 0xA855F7},
	"recrutement": {channelKey: "recrutement", emoji: "🎯", color: 0xF59E0B},
	"sanction":    {channelKey: "sanctions", emoji: "⚠️", color: 0xEF4444},
	"poste":       {channelKey: "postes", emoji: "🎯", color: 0xF472B6},
}

func (s *Server) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type            string          `json:"type"`
		Titre           string          `json:"titre"`
		Message         string          `json:"message"`
		Color           json.RawMessage `json:"color"`
		Author          string          `json:"author"`
		MentionEveryone bool            `json:"mentionEveryone"`
	}
	if err := decodeBody(r, &body); err != nil || body.Message == "" {
		writeError(w, http.StatusBadRequest, "message requis")
		return
	}

	target, known := announceTargets[body.Type]
	if !known {
		target = announceTarget{channelKey: "annonces", emoji: "📢", color: colorPrimary}
	}
	channelID := s.store.ServerConfig().Channels[target.channelKey]
	if channelID == "" {
		// Unknown types fall back to the general announcement channel.
		channelID = s.store.ServerConfig().Channels["annonces"]
	}
	if channelID == "" {
		writeError(w, http.StatusBadRequest, "Salon non configuré. Lance /setup d'abord.")
		return
	}

	titre := body.Titre
	if titre == "" {
		titre = "Annonce FTY Club Pro"
	}
	author := body.Author
	if author == "" {
		author = "Staff"
	}
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s %s", target.emoji, titre),
		Description: body.Message,
		Color:       parseColor(body.Color, target.color),
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "FTY Club Pro | " + author},
	}
	content := ""
	if body.MentionEveryone {
		content = "@everyone"
	}
	if err := s.bot.SendAnnouncement(r.Context(), channelID, content, embed); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.ring.Log(botlog.LevelSuccess, fmt.Sprintf("📢 Annonce %s par %s", body.Type, author))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handlePatchNotes posts release notes to the announcement channel.
func (s *Server) handlePatchNotes(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Version         string `json:"version"`
		Message         string `json:"message"`
		Author          string `json:"author"`
		MentionEveryone bool   `json:"mentionEveryone"`
	}
	if err := decodeBody(r, &body); err != nil || body.Message == "" {
		writeError(w, http.StatusBadRequest, "message requis")
		return
	}

	channelID := s.store.ServerConfig().Channels["annonces"]
	if channelID == "" {
		writeError(w, http.StatusBadRequest, "Salon non configuré. Lance /setup d'abord.")
		return
	}

	title := "📦 Patch Notes"
	if body.Version != "" {
		title = fmt.Sprintf("📦 Patch Notes — %s", body.Version)
	}
	author := body.Author
	if author == "" {
		author = "Staff"
	}
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: body.Message,
		Color:       colorPrimary,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "FTY Club Pro | " + author},
	}
	content := ""
	if body.MentionEveryone {
		content = "@everyone"
	}
	if err := s.bot.SendAnnouncement(r.Context(), channelID, content, embed); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.ring.Log(botlog.LevelSuccess, fmt.Sprintf("📦 Patch notes publiées (%s)", body.Version))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleAnnounceMatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Adversaire      string `json:"adversaire"`
		Date            string `json:"date"`
		Heure           string `json:"heure"`
		Competition     string `json:"competition"`
		Formation       string `json:"formation"`
		Capitaine       string `json:"capitaine"`
		Convocation     string `json:"convocation"`
		Author          string `json:"author"`
		MentionEveryone bool   `json:"mentionEveryone"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "corps illisible")
		return
	}

	channelID := s.store.ServerConfig().Channels["matchAnnonce"]
	if channelID == "" {
		writeError(w, http.StatusBadRequest, "Salon match non configuré. Lance /setup.")
		return
	}

	var fields []*discordgo.MessageEmbedField
	if body.Adversaire != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "🆚 Adversaire", Value: body.Adversaire, Inline: true})
	}
	if body.Date != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "📅 Date", Value: body.Date, Inline: true})
	}
	if body.Heure != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "🕐 Heure", Value: body.Heure, Inline: true})
	}
	if body.Competition != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "🏆 Compétition", Value: body.Competition, Inline: true})
	}
	if body.Capitaine != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "🎯 Capitaine", Value: body.Capitaine, Inline: true})
	}
	if body.Formation != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "📋 Formation", Value: body.Formation, Inline: true})
	}

	adversaire := body.Adversaire
	if adversaire == "" {
		adversaire = "Adversaire"
	}
	description := "Un match est prévu ! Soyez prêts."
	if body.Convocation != "" {
		description = fmt.Sprintf("📣 **Convocation officielle**\n\n%s", body.Convocation)
	}
	author := body.Author
	if author == "" {
		author = body.Capitaine
	}
	if author == "" {
		author = "Staff"
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("⚽ MATCH — FTY Club Pro vs %s", adversaire),
		Description: description,
		Color:       colorSuccess,
		Fields:      fields,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "FTY Club Pro | " + author},
	}
	content := ""
	if body.MentionEveryone {
		content = "@everyone"
	}
	if err := s.bot.SendAnnouncement(r.Context(), channelID, content, embed); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.ring.Log(botlog.LevelSuccess, fmt.Sprintf("⚽ Annonce match vs %s par %s", body.Adversaire, author))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	open, total := s.store.CountTickets()
	writeJSON(w, http.StatusOK, map[string]any{
		"tickets": s.store.ListTickets(),
		"open":    open,
		"total":   total,
	})
}

func (s *Server) handleTicketAction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action       string `json:"action"`
		TicketID     string `json:"ticketId"`
		DiscordID    string `json:"discordId"`
		Sujet        string `json:"sujet"`
		StaffName    string `json:"staffName"`
		StaffMessage string `json:"staffMessage"`
	}
	if err := decodeBody(r, &body); err != nil || body.DiscordID == "" {
		writeError(w, http.StatusBadRequest, "discordId requis")
		return
	}

	var err error
	switch body.Action {
	case "claim":
		err = s.tickets.Claim(r.Context(), body.TicketID, body.DiscordID, body.StaffName)
	case "close":
		err = s.tickets.Close(r.Context(), body.TicketID, body.DiscordID, body.StaffName)
	default:
		if body.StaffMessage == "" {
			writeError(w, http.StatusBadRequest, "staffMessage requis")
			return
		}
		err = s.tickets.Reply(r.Context(), body.TicketID, body.DiscordID, body.Sujet, body.StaffName, body.StaffMessage)
	}

	if errors.Is(err, tickets.ErrDeliveryFailed) {
		writeError(w, http.StatusBadGateway, "DM impossible, messages privés fermés ?")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleModerate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action    string `json:"action"`
		DiscordID string `json:"discordId"`
		Reason    string `json:"reason"`
		Moderator string `json:"moderator"`
	}
	if err := decodeBody(r, &body); err != nil || body.DiscordID == "" || body.Action == "" {
		writeError(w, http.StatusBadRequest, "action et discordId requis")
		return
	}

	err := s.dispatcher.Apply(r.Context(), body.Action, body.DiscordID, body.Reason, body.Moderator)
	switch {
	case errors.Is(err, moderation.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, "Membre introuvable sur le serveur")
	case errors.Is(err, moderation.ErrRoleNotConfigured):
		writeError(w, http.StatusBadRequest, "Rôle muted non configuré. Lance /setup d'abord.")
	case errors.Is(err, moderation.ErrUnknownAction):
		writeError(w, http.StatusBadRequest, "Action inconnue")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// handleNotifyPoste applies a position change: the role swap uses
// role-key names resolved through the stored role map, not raw role
// ids. Every part is optional and best-effort.
func (s *Server) handleNotifyPoste(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DiscordID    string `json:"discordId"`
		Username     string `json:"username"`
		AncienPoste  string `json:"ancienPoste"`
		NouveauPoste string `json:"nouveauPoste"`
		AncienRole   string `json:"ancienRole"`
		NouveauRole  string `json:"nouveauRole"`
		By           string `json:"by"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "corps illisible")
		return
	}

	const colorPoste = 0xF472B6
	cfg := s.store.ServerConfig()

	if body.DiscordID != "" {
		if roleID := cfg.Roles[body.AncienRole]; body.AncienRole != "" && roleID != "" {
			_ = s.bot.RemoveRole(r.Context(), body.DiscordID, roleID)
		}
		if roleID := cfg.Roles[body.NouveauRole]; body.NouveauRole != "" && roleID != "" {
			_ = s.bot.AddRole(r.Context(), body.DiscordID, roleID)
		}

		embed := &discordgo.MessageEmbed{
			Title:       "🎯 Changement de Poste/Rôle - FTY Club Pro",
			Description: posteDescription("", body.AncienPoste, body.NouveauPoste, body.AncienRole, body.NouveauRole, body.By),
			Color:       colorPoste,
			Timestamp:   time.Now().Format(time.RFC3339),
			Footer:      &discordgo.MessageEmbedFooter{Text: "FTY Club Pro | RH"},
		}
		_ = s.bot.SendDM(r.Context(), body.DiscordID, embed)
	}

	if channelID := cfg.Channels["postes"]; channelID != "" {
		announcement := &discordgo.MessageEmbed{
			Title:       "🎯 Attribution/Changement de Poste",
			Description: posteDescription(body.Username, body.AncienPoste, body.NouveauPoste, body.AncienRole, body.NouveauRole, body.By),
			Color:       colorPoste,
			Timestamp:   time.Now().Format(time.RFC3339),
			Footer:      &discordgo.MessageEmbedFooter{Text: "FTY Club Pro | RH"},
		}
		_ = s.bot.SendChannelEmbed(r.Context(), channelID, announcement)
	}

	s.ring.Log(botlog.LevelSuccess, fmt.Sprintf("🎯 Changement poste: %s par %s", body.Username, body.By))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func posteDescription(username, ancienPoste, nouveauPoste, ancienRole, nouveauRole, by string) string {
	var lines []string
	if username != "" {
		lines = append(lines, fmt.Sprintf("**Membre:** %s", username))
	}
	switch {
	case ancienPoste != "" && nouveauPoste != "":
		lines = append(lines, fmt.Sprintf("**Poste:** %s → **%s**", ancienPoste, nouveauPoste))
	case nouveauPoste != "":
		lines = append(lines, fmt.Sprintf("**Nouveau poste:** %s", nouveauPoste))
	}
	switch {
	case ancienRole != "" && nouveauRole != "":
		lines = append(lines, fmt.Sprintf("**Rôle:** %s → **%s**", ancienRole, nouveauRole))
	case nouveauRole != "":
		lines = append(lines, fmt.Sprintf("**Nouveau rôle:** %s", nouveauRole))
	}
	if by != "" {
		lines = append(lines, fmt.Sprintf("**Par:** %s", by))
	}
	return strings.Join(lines, "\n")
}

// handleNotifySanction notifies a sanction already decided on the
// panel side: DM when a discordId is given, sanction-log embed either
// way.
func (s *Server) handleNotifySanction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DiscordID string `json:"discordId"`
		Username  string `json:"username"`
		Type      string `json:"type"`
		Raison    string `json:"raison"`
		By        string `json:"by"`
	}
	if err := decodeBody(r, &body); err != nil || body.Type == "" {
		writeError(w, http.StatusBadRequest, "type requis")
		return
	}
	if body.Raison == "" {
		body.Raison = "Non précisée"
	}
	if body.By == "" {
		body.By = "Staff"
	}

	meta := moderation.Meta(body.Type)
	if body.DiscordID != "" {
		embed := &discordgo.MessageEmbed{
			Title: fmt.Sprintf("%s %s - FTY Club Pro", meta.Emoji, meta.Label),
			Description: fmt.Sprintf("**Type:** %s\n**Raison:** %s\n**Modérateur:** %s",
				meta.Label, body.Raison, body.By),
			Color:     meta.Color,
			Timestamp: time.Now().Format(time.RFC3339),
			Footer:    &discordgo.MessageEmbedFooter{Text: "FTY Club Pro | Modération"},
		}
		_ = s.bot.SendDM(r.Context(), body.DiscordID, embed)
	}

	if channelID := s.store.ServerConfig().Channels["sanctions"]; channelID != "" {
		membre := body.Username
		if body.DiscordID != "" {
			membre = fmt.Sprintf("%s (<@%s>)", body.Username, body.DiscordID)
		}
		log := &discordgo.MessageEmbed{
			Title: fmt.Sprintf("%s %s", meta.Emoji, meta.Label),
			Description: fmt.Sprintf("**Membre:** %s\n**Raison:** %s\n**Modérateur:** %s",
				membre, body.Raison, body.By),
			Color:     meta.Color,
			Timestamp: time.Now().Format(time.RFC3339),
			Footer:    &discordgo.MessageEmbedFooter{Text: "FTY Club Pro | Modération"},
		}
		_ = s.bot.SendChannelEmbed(r.Context(), channelID, log)
	}

	s.ring.Log(botlog.LevelWarn, fmt.Sprintf("%s Sanction %s: %s par %s", meta.Emoji, body.Type, body.Username, body.By))
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// The GET side returns the record bare; the POST side wraps the patch
// in a config field. That asymmetry is the panel's contract.
func (s *Server) handleGetServerConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ServerConfig())
}

func (s *Server) handlePatchServerConfig(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Config json.RawMessage `json:"config"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "corps illisible")
		return
	}
	if len(body.Config) == 0 || string(body.Config) == "null" {
		writeError(w, http.StatusBadRequest, "config requis")
		return
	}
	patch, err := storage.DecodeServerConfigPatch(body.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg := s.store.MergeServerConfig(patch)
	s.ring.Log(botlog.LevelInfo, "⚙️ Configuration mise à jour depuis le panel")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "config": cfg})
}

func (s *Server) handleGuildChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.bot.TextChannels()
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": channels})
}

func (s *Server) handleGuildRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.bot.GuildRoles()
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

// handleBotInbound is the panel-to-bot channel: the same envelope the
// bot sends outbound, with a handful of panel-initiated actions.
func (s *Server) handleBotInbound(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action string          `json:"action"`
		Data   json.RawMessage `json:"data"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "corps illisible")
		return
	}

	switch body.Action {
	case "heartbeat":
		s.panel.SetConnected(true)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	case "maintenance":
		var data struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.Unmarshal(body.Data, &data); err != nil {
			writeError(w, http.StatusBadRequest, "data invalide")
			return
		}
		s.bot.Status().SetMaintenance(data.Enabled)
		s.ring.Log(botlog.LevelWarn, fmt.Sprintf("🔧 Maintenance: %v", data.Enabled))
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	case "log":
		var data struct {
			Level   string `json:"level"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body.Data, &data); err != nil || data.Message == "" {
			writeError(w, http.StatusBadRequest, "data invalide")
			return
		}
		if data.Level == "" {
			data.Level = botlog.LevelInfo
		}
		s.ring.Log(data.Level, data.Message)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	case "configUpdate", "updateConfig":
		patch, err := storage.DecodeServerConfigPatch(body.Data)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		cfg := s.store.MergeServerConfig(patch)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "config": cfg})
	case "getConfig":
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": s.store.ServerConfig()})
	case "clearLogs":
		s.ring.Clear()
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		writeError(w, http.StatusBadRequest, "Action inconnue")
	}
}
