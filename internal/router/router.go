package router

import (
	"github.com/Elliesaur/DiscordEventLogger/internal/capability"
	"github.com/Elliesaur/DiscordEventLogger/internal/database"
	"github.com/Elliesaur/DiscordEventLogger/internal/events"
	"github.com/Elliesaur/DiscordEventLogger/internal/logging"
	"github.com/Elliesaur/DiscordEventLogger/internal/metrics"
	"github.com/Elliesaur/DiscordEventLogger/internal/script"
	"github.com/Elliesaur/DiscordEventLogger/internal/snapshot"
)

// ConfigStore is the slice of the store the router needs per occurrence.
type ConfigStore interface {
	GetOrCreateGuildConfig(guildID string) (*database.GuildConfig, error)
}

// Sender delivers one log line to one channel.
type Sender interface {
	Send(channelID, message string) error
}

// Actions dispatches one action script bound to an event occurrence.
type Actions interface {
	Run(ctx *events.Context, source string) error
}

// GuildResolver lists the guilds an acting user belongs to.
type GuildResolver interface {
	Resolve(userID string) []string
}

// Router turns normalized event occurrences into log deliveries and action
// invocations according to each guild's configuration.
type Router struct {
	catalog  *events.Catalog
	store    ConfigStore
	sender   Sender
	actions  Actions
	resolver GuildResolver
}

func New(catalog *events.Catalog, store ConfigStore, sender Sender, actions Actions, resolver GuildResolver) *Router {
	return &Router{
		catalog:  catalog,
		store:    store,
		sender:   sender,
		actions:  actions,
		resolver: resolver,
	}
}

// Route processes one guild-scoped event occurrence. Unrecognized names
// are dropped silently. The enablement check is a hard gate: a disabled
// event produces no log message and no action invocation.
func (r *Router) Route(eventName string, ctx *events.Context) {
	name, ok := r.catalog.Canonical(eventName)
	if !ok {
		metrics.Get().EventUnknown()
		return
	}
	def, _ := r.catalog.Get(name)

	config, err := r.store.GetOrCreateGuildConfig(ctx.GuildID)
	if err != nil {
		logging.Error("router: failed to load config for guild %s: %v", ctx.GuildID, err)
		return
	}

	if !contains(config.Events, name) {
		metrics.Get().EventSuppressed()
		return
	}
	metrics.Get().EventRouted()

	r.deliver(def, config, ctx)
	r.dispatchActions(name, config, ctx)
}

// RouteUserEvent processes a user-scoped occurrence by fanning it out to
// every guild the user belongs to. build produces an independently
// resolved context per guild; returning nil skips that guild.
func (r *Router) RouteUserEvent(eventName, userID string, build func(guildID string) *events.Context) {
	if _, ok := r.catalog.Canonical(eventName); !ok {
		metrics.Get().EventUnknown()
		return
	}

	for _, guildID := range r.resolver.Resolve(userID) {
		ctx := build(guildID)
		if ctx == nil {
			continue
		}
		r.Route(eventName, ctx)
	}
}

// deliver resolves target channels and sends the formatted log line to
// each. Overrides for the event win over the default channel; with
// neither, the event is silently skipped. Each send is independent and
// best-effort.
func (r *Router) deliver(def events.Definition, config *database.GuildConfig, ctx *events.Context) {
	var targets []string
	for _, lc := range config.LogChannels {
		if lc.Event == def.Name {
			targets = append(targets, lc.ChannelID)
		}
	}
	if len(targets) == 0 && config.LogChannelID != "" {
		targets = []string{config.LogChannelID}
	}
	if len(targets) == 0 {
		return
	}

	message := def.Template(ctx)
	for _, channelID := range targets {
		if err := r.sender.Send(channelID, message); err != nil {
			logging.Warn("router: failed to deliver %s log to channel %s in guild %s: %v",
				def.Name, channelID, ctx.GuildID, err)
			metrics.Get().DeliveryFailure()
			continue
		}
		metrics.Get().Delivery()
	}
}

// dispatchActions invokes every action bound to the event. Bindings run
// independently; one failure never stops the rest.
func (r *Router) dispatchActions(name string, config *database.GuildConfig, ctx *events.Context) {
	for _, action := range config.EventActions {
		if action.Event != name {
			continue
		}
		if err := r.actions.Run(ctx, action.ActionCode); err != nil {
			logging.Warn("router: action %s for event %s in guild %s rejected: %v",
				action.ID, name, ctx.GuildID, err)
		}
	}
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}

// ScriptActions runs action scripts on the script engine with a fresh
// snapshot and capability binding per invocation.
type ScriptActions struct {
	engine   *script.Engine
	platform capability.Platform
}

func NewScriptActions(engine *script.Engine, platform capability.Platform) *ScriptActions {
	return &ScriptActions{engine: engine, platform: platform}
}

func (a *ScriptActions) Run(ctx *events.Context, source string) error {
	return a.engine.Execute(source, script.Binding{
		GuildID: ctx.GuildID,
		Caps:    capability.NewSet(a.platform, ctx),
		Vars:    snapshot.Bind(ctx),
	})
}
