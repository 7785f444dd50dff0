package bot

import (
	"strconv"

	"github.com/Elliesaur/DiscordEventLogger/internal/database"
	"github.com/Elliesaur/DiscordEventLogger/internal/events"
	"github.com/Elliesaur/DiscordEventLogger/internal/logging"
	"github.com/Elliesaur/DiscordEventLogger/internal/router"

	"github.com/bwmarrin/discordgo"
)

// Handlers normalizes raw gateway events into catalog occurrences and
// feeds them to the router. Update events without a usable before-state
// degrade to their unhandled variant rather than being dropped.
type Handlers struct {
	router   *router.Router
	platform *Platform
	cache    *stateCache
}

// RegisterHandlers wires every gateway event the catalog covers onto the
// session.
func RegisterHandlers(session *Session, r *router.Router, platform *Platform) *Handlers {
	h := &Handlers{
		router:   r,
		platform: platform,
		cache:    newStateCache(),
	}

	session.AddHandler(h.onReady)
	session.AddHandler(h.onGuildCreate)
	session.AddHandler(h.onGuildUpdate)
	session.AddHandler(h.onGuildMemberAdd)
	session.AddHandler(h.onGuildMemberRemove)
	session.AddHandler(h.onGuildMemberUpdate)
	session.AddHandler(h.onGuildRoleCreate)
	session.AddHandler(h.onGuildRoleUpdate)
	session.AddHandler(h.onGuildRoleDelete)
	session.AddHandler(h.onChannelCreate)
	session.AddHandler(h.onChannelUpdate)
	session.AddHandler(h.onChannelDelete)
	session.AddHandler(h.onMessageCreate)
	session.AddHandler(h.onMessageUpdate)
	session.AddHandler(h.onMessageDelete)
	session.AddHandler(h.onMessageDeleteBulk)
	session.AddHandler(h.onMessageReactionAdd)
	session.AddHandler(h.onMessageReactionRemove)
	session.AddHandler(h.onMessageReactionRemoveAll)
	session.AddHandler(h.onPresenceUpdate)
	session.AddHandler(h.onVoiceStateUpdate)
	session.AddHandler(h.onUserUpdate)

	return h
}

func (h *Handlers) onReady(s *discordgo.Session, r *discordgo.Ready) {
	logging.Info("Ready: connected as %s across %d guilds", r.User.String(), len(r.Guilds))
}

// onGuildCreate warms the guild's configuration row and seeds the diff
// caches from the initial guild payload.
func (h *Handlers) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if _, err := database.GetDB().GetOrCreateGuildConfig(g.ID); err != nil {
		logging.Error("failed to ensure config for guild %s: %v", g.ID, err)
	}

	h.cache.swapGuild(g.Guild)
	for _, role := range g.Roles {
		h.cache.swapRolePosition(g.ID, role.ID, role.Position)
	}
	for _, member := range g.Members {
		h.cache.observeUser(member.User)
	}
	for _, presence := range g.Presences {
		if presence.User != nil {
			h.cache.swapPresence(g.ID, presence.User.ID, presence.Status)
		}
	}
	for _, channel := range g.Channels {
		h.cache.swapChannelPermissions(channel.ID, channel.PermissionOverwrites)
	}

	logging.Info("Guild available: %s (%s)", g.Name, g.ID)
}

func (h *Handlers) onGuildUpdate(s *discordgo.Session, g *discordgo.GuildUpdate) {
	old, ok := h.cache.swapGuild(g.Guild)
	ctx := &events.Context{GuildID: g.ID, GuildName: g.Name}
	if !ok {
		h.router.Route("unhandledGuildUpdate", ctx)
		return
	}

	handled := false
	if g.PremiumTier > old.PremiumTier {
		handled = true
		h.router.Route("guildBoostLevelUp", ctx.WithDetail("newLevel", strconv.Itoa(int(g.PremiumTier))))
	}
	if g.PremiumTier < old.PremiumTier {
		handled = true
		h.router.Route("guildBoostLevelDown", ctx.WithDetail("newLevel", strconv.Itoa(int(g.PremiumTier))))
	}
	if g.Region != old.Region {
		handled = true
		h.router.Route("guildRegionUpdate", ctx.WithDetail("newRegion", g.Region))
	}
	if old.Banner == "" && g.Banner != "" {
		handled = true
		h.router.Route("guildBannerAdd", ctx)
	}
	if old.AfkChannelID == "" && g.AfkChannelID != "" {
		handled = true
		h.router.Route("guildAfkChannelAdd", ctx)
	}
	if old.VanityURLCode == "" && g.VanityURLCode != "" {
		handled = true
		h.router.Route("guildVanityURLAdd", ctx.WithDetail("vanityURL", g.VanityURLCode))
	}

	if !handled {
		h.router.Route("unhandledGuildUpdate", ctx)
	}
}

func (h *Handlers) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	h.cache.observeUser(m.User)
	h.router.Route("guildMemberAdd", h.memberContext(m.GuildID, m.Member))
}

func (h *Handlers) onGuildMemberRemove(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
	h.router.Route("guildMemberRemove", h.memberContext(m.GuildID, m.Member))
}

func (h *Handlers) onGuildMemberUpdate(s *discordgo.Session, m *discordgo.GuildMemberUpdate) {
	h.cache.observeUser(m.User)
	ctx := h.memberContext(m.GuildID, m.Member)

	old := m.BeforeUpdate
	if old == nil {
		h.router.Route("unhandledGuildMemberUpdate", ctx)
		return
	}

	handled := false
	if old.Nick != m.Nick {
		handled = true
		nickCtx := ctx.WithDetail("oldNickname", old.Nick)
		nickCtx.Extra["newNickname"] = m.Nick
		h.router.Route("guildMemberNicknameUpdate", nickCtx)
	}

	for _, roleID := range diffIDs(m.Roles, old.Roles) {
		handled = true
		roleCtx := *ctx
		roleCtx.Role = h.roleFromState(m.GuildID, roleID)
		h.router.Route("guildMemberRoleAdd", &roleCtx)
	}
	for _, roleID := range diffIDs(old.Roles, m.Roles) {
		handled = true
		roleCtx := *ctx
		roleCtx.Role = h.roleFromState(m.GuildID, roleID)
		h.router.Route("guildMemberRoleRemove", &roleCtx)
	}

	if old.PremiumSince == nil && m.PremiumSince != nil {
		handled = true
		h.router.Route("guildMemberBoost", ctx)
	}
	if old.PremiumSince != nil && m.PremiumSince == nil {
		handled = true
		h.router.Route("guildMemberUnboost", ctx)
	}

	if !handled {
		h.router.Route("unhandledGuildMemberUpdate", ctx)
	}
}

func (h *Handlers) onGuildRoleCreate(s *discordgo.Session, r *discordgo.GuildRoleCreate) {
	if r.Role != nil {
		h.cache.swapRolePosition(r.GuildID, r.Role.ID, r.Role.Position)
	}
}

func (h *Handlers) onGuildRoleUpdate(s *discordgo.Session, r *discordgo.GuildRoleUpdate) {
	if r.Role == nil {
		return
	}
	ctx := &events.Context{
		GuildID:   r.GuildID,
		GuildName: h.guildName(r.GuildID),
		Role:      r.Role,
	}

	oldPos, ok := h.cache.swapRolePosition(r.GuildID, r.Role.ID, r.Role.Position)
	if ok && oldPos != r.Role.Position {
		posCtx := ctx.WithDetail("oldPosition", strconv.Itoa(oldPos))
		posCtx.Extra["newPosition"] = strconv.Itoa(r.Role.Position)
		h.router.Route("rolePositionUpdate", posCtx)
		return
	}
	h.router.Route("unhandledRoleUpdate", ctx)
}

func (h *Handlers) onGuildRoleDelete(s *discordgo.Session, r *discordgo.GuildRoleDelete) {
	h.cache.forgetRole(r.GuildID, r.RoleID)
}

func (h *Handlers) onChannelCreate(s *discordgo.Session, c *discordgo.ChannelCreate) {
	if c.GuildID == "" {
		return
	}
	h.cache.swapChannelPermissions(c.ID, c.PermissionOverwrites)
}

// onChannelUpdate diffs the channel's permission overwrites against the
// cached copy; the gateway payload carries only the new shape.
func (h *Handlers) onChannelUpdate(s *discordgo.Session, c *discordgo.ChannelUpdate) {
	if c.GuildID == "" {
		return
	}
	ctx := &events.Context{
		GuildID:   c.GuildID,
		GuildName: h.guildName(c.GuildID),
		Channel:   c.Channel,
	}

	old, known := h.cache.swapChannelPermissions(c.ID, c.PermissionOverwrites)
	if known && overwritesChanged(old, c.PermissionOverwrites) {
		h.router.Route("guildChannelPermissionsUpdate", ctx)
		return
	}
	h.router.Route("unhandledGuildChannelUpdate", ctx)
}

func (h *Handlers) onChannelDelete(s *discordgo.Session, c *discordgo.ChannelDelete) {
	h.cache.forgetChannel(c.ID)
}

func (h *Handlers) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	h.cache.observeUser(m.Author)

	ctx := h.messageContext(m.GuildID, m.Message)
	h.router.Route("message", ctx)
	h.router.Route("messageCreated", ctx)
}

func (h *Handlers) onMessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	if m.GuildID == "" || (m.Author != nil && m.Author.Bot) {
		return
	}
	ctx := h.messageContext(m.GuildID, m.Message)

	old := m.BeforeUpdate
	if old == nil {
		h.router.Route("unhandledMessageUpdate", ctx)
		return
	}

	if !old.Pinned && m.Pinned {
		h.router.Route("messagePinned", ctx)
		return
	}
	if old.Content != m.Content {
		editCtx := ctx.WithDetail("oldContent", old.Content)
		editCtx.Extra["newContent"] = m.Content
		h.router.Route("messageContentEdited", editCtx)
		return
	}
	h.router.Route("unhandledMessageUpdate", ctx)
}

func (h *Handlers) onMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	if m.GuildID == "" {
		return
	}

	deleted := m.BeforeDelete
	if deleted == nil {
		deleted = m.Message
	}
	ctx := h.messageContext(m.GuildID, deleted)
	if len(deleted.Attachments) > 0 && deleted.Attachments[0] != nil {
		ctx = ctx.WithDetail("attachmentURL", deleted.Attachments[0].URL)
	}
	h.router.Route("messageDelete", ctx)
}

func (h *Handlers) onMessageDeleteBulk(s *discordgo.Session, m *discordgo.MessageDeleteBulk) {
	if m.GuildID == "" {
		return
	}
	ctx := &events.Context{
		GuildID:   m.GuildID,
		GuildName: h.guildName(m.GuildID),
	}
	h.router.Route("messageDeleteBulk", ctx.WithDetail("count", strconv.Itoa(len(m.Messages))))
}

func (h *Handlers) onMessageReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	h.routeReaction("messageReactionAdd", r.MessageReaction)
}

func (h *Handlers) onMessageReactionRemove(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
	h.routeReaction("messageReactionRemove", r.MessageReaction)
}

func (h *Handlers) onMessageReactionRemoveAll(s *discordgo.Session, r *discordgo.MessageReactionRemoveAll) {
	h.routeReaction("messageReactionRemoveAll", r.MessageReaction)
}

func (h *Handlers) routeReaction(eventName string, r *discordgo.MessageReaction) {
	if r == nil || r.GuildID == "" {
		return
	}

	ctx := &events.Context{
		GuildID:   r.GuildID,
		GuildName: h.guildName(r.GuildID),
		Reaction:  r,
		Emoji:     &r.Emoji,
	}
	if member, err := h.platform.GuildMember(r.GuildID, r.UserID); err == nil {
		ctx.Member = member
		ctx.User = member.User
	}
	if message, err := h.platform.ChannelMessage(r.ChannelID, r.MessageID); err == nil {
		ctx.Message = message
	} else {
		// Enough of the message for templates to link to it.
		ctx.Message = &discordgo.Message{ID: r.MessageID, ChannelID: r.ChannelID, GuildID: r.GuildID}
	}
	h.router.Route(eventName, ctx)
}

func (h *Handlers) onPresenceUpdate(s *discordgo.Session, p *discordgo.PresenceUpdate) {
	if p.User == nil || p.GuildID == "" {
		return
	}
	old, known := h.cache.swapPresence(p.GuildID, p.User.ID, p.Status)

	member, err := h.platform.GuildMember(p.GuildID, p.User.ID)
	if err != nil {
		logging.Debug("presence update for unresolvable member %s in guild %s: %v", p.User.ID, p.GuildID, err)
		return
	}
	ctx := h.memberContext(p.GuildID, member)

	switch {
	case known && old != discordgo.StatusOffline && p.Status == discordgo.StatusOffline:
		h.router.Route("guildMemberOffline", ctx)
	case known && old == discordgo.StatusOffline && p.Status != discordgo.StatusOffline:
		h.router.Route("guildMemberOnline", ctx.WithDetail("newStatus", string(p.Status)))
	default:
		h.router.Route("unhandledPresenceUpdate", ctx)
	}
}

func (h *Handlers) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.GuildID == "" {
		return
	}

	member, err := h.platform.GuildMember(v.GuildID, v.UserID)
	if err != nil {
		logging.Debug("voice update for unresolvable member %s in guild %s: %v", v.UserID, v.GuildID, err)
		return
	}
	ctx := h.memberContext(v.GuildID, member)
	ctx.Channel = h.channelFromState(v.ChannelID)

	old := v.BeforeUpdate
	if old == nil {
		if v.ChannelID != "" {
			h.router.Route("voiceChannelJoin", ctx)
			return
		}
		h.router.Route("unhandledVoiceStateUpdate", ctx)
		return
	}

	switch {
	case old.ChannelID == "" && v.ChannelID != "":
		h.router.Route("voiceChannelJoin", ctx)
	case old.ChannelID != "" && v.ChannelID == "":
		ctx.Channel = h.channelFromState(old.ChannelID)
		h.router.Route("voiceChannelLeave", ctx)
	case old.ChannelID != v.ChannelID:
		switchCtx := ctx.WithDetail("oldChannelName", h.channelName(old.ChannelID))
		h.router.Route("voiceChannelSwitch", switchCtx)
	case !old.SelfMute && v.SelfMute:
		h.router.Route("voiceChannelMute", ctx.WithDetail("muteType", "self-muted"))
	case !old.Mute && v.Mute:
		h.router.Route("voiceChannelMute", ctx.WithDetail("muteType", "server-muted"))
	case !old.SelfDeaf && v.SelfDeaf:
		h.router.Route("voiceChannelDeaf", ctx.WithDetail("deafType", "self-deafened"))
	case !old.Deaf && v.Deaf:
		h.router.Route("voiceChannelDeaf", ctx.WithDetail("deafType", "server-deafened"))
	case (old.SelfMute && !v.SelfMute) || (old.Mute && !v.Mute):
		h.router.Route("voiceChannelUnmute", ctx)
	case (old.SelfDeaf && !v.SelfDeaf) || (old.Deaf && !v.Deaf):
		h.router.Route("voiceChannelUndeaf", ctx)
	case !old.SelfStream && v.SelfStream:
		h.router.Route("voiceStreamingStart", ctx)
	case old.SelfStream && !v.SelfStream:
		h.router.Route("voiceStreamingStop", ctx)
	default:
		h.router.Route("unhandledVoiceStateUpdate", ctx)
	}
}

// onUserUpdate handles the only user-scoped gateway event: the occurrence
// is not tied to a guild, so it fans out to every guild the user shares
// with the bot.
func (h *Handlers) onUserUpdate(s *discordgo.Session, u *discordgo.UserUpdate) {
	if u.User == nil {
		return
	}
	old, known := h.cache.swapUser(u.User)

	eventName := "unhandledUserUpdate"
	extra := map[string]string{}
	switch {
	case known && old.Avatar != u.Avatar:
		eventName = "userAvatarUpdate"
		extra["oldAvatarURL"] = old.AvatarURL("")
		extra["newAvatarURL"] = u.AvatarURL("")
	case known && old.Username != u.Username:
		eventName = "userUsernameUpdate"
		extra["oldUsername"] = old.Username
		extra["newUsername"] = u.Username
	}

	h.router.RouteUserEvent(eventName, u.ID, func(guildID string) *events.Context {
		ctx := &events.Context{
			GuildID:   guildID,
			GuildName: h.guildName(guildID),
			User:      u.User,
			Extra:     extra,
		}
		if member, err := h.platform.GuildMember(guildID, u.ID); err == nil {
			ctx.Member = member
		}
		return ctx
	})
}

func (h *Handlers) memberContext(guildID string, m *discordgo.Member) *events.Context {
	ctx := &events.Context{
		GuildID:   guildID,
		GuildName: h.guildName(guildID),
		Member:    m,
	}
	if m != nil {
		ctx.User = m.User
	}
	return ctx
}

func (h *Handlers) messageContext(guildID string, m *discordgo.Message) *events.Context {
	ctx := &events.Context{
		GuildID:   guildID,
		GuildName: h.guildName(guildID),
		Message:   m,
	}
	if m != nil {
		ctx.User = m.Author
		ctx.Channel = h.channelFromState(m.ChannelID)
		if m.Author != nil {
			if member, err := h.platform.GuildMember(guildID, m.Author.ID); err == nil {
				ctx.Member = member
			}
		}
	}
	return ctx
}

func (h *Handlers) guildName(guildID string) string {
	if guild, err := h.platform.session.GetDiscord().State.Guild(guildID); err == nil && guild != nil {
		return guild.Name
	}
	return ""
}

func (h *Handlers) channelFromState(channelID string) *discordgo.Channel {
	if channelID == "" {
		return nil
	}
	if channel, err := h.platform.session.GetDiscord().State.Channel(channelID); err == nil {
		return channel
	}
	return &discordgo.Channel{ID: channelID}
}

func (h *Handlers) channelName(channelID string) string {
	if ch := h.channelFromState(channelID); ch != nil {
		return ch.Name
	}
	return ""
}

func (h *Handlers) roleFromState(guildID, roleID string) *discordgo.Role {
	if role, err := h.platform.session.GetDiscord().State.Role(guildID, roleID); err == nil && role != nil {
		return role
	}
	return &discordgo.Role{ID: roleID}
}

// diffIDs returns the ids present in a but not in b.
func diffIDs(a, b []string) []string {
	var out []string
	for _, id := range a {
		found := false
		for _, other := range b {
			if id == other {
				found = true
				break
			}
		}
		if !found {
			out = append(out, id)
		}
	}
	return out
}

// overwritesChanged compares a cached overwrite set against the current
// gateway payload. Nil entries never come out of the cache, so any nil on
// the current side counts as a change.
func overwritesChanged(old []discordgo.PermissionOverwrite, current []*discordgo.PermissionOverwrite) bool {
	if len(old) != len(current) {
		return true
	}
	for i, p := range current {
		if p == nil || *p != old[i] {
			return true
		}
	}
	return false
}
