package resolver

import (
	"sync"

	"github.com/Elliesaur/DiscordEventLogger/internal/logging"
)

// MembershipSource answers which guilds the host is connected to and
// whether a user belongs to one of them. The bot package implements it
// over the Discord session.
type MembershipSource interface {
	GuildIDs() []string
	IsMember(guildID, userID string) (bool, error)
}

// Resolver discovers every guild an acting user belongs to, for routing
// user-scoped events that are not tied to any single guild.
type Resolver struct {
	source MembershipSource
}

func New(source MembershipSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the ids of every connected guild the user is currently
// a member of. Lookups run concurrently and join on all outcomes; a
// failed lookup excludes that guild and is recorded, never surfaced as an
// error. No ordering guarantee; one entry per guild by construction.
func (r *Resolver) Resolve(userID string) []string {
	guildIDs := r.source.GuildIDs()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		matched = make([]string, 0, len(guildIDs))
	)

	for _, guildID := range guildIDs {
		wg.Add(1)
		go func(guildID string) {
			defer wg.Done()

			member, err := r.source.IsMember(guildID, userID)
			if err != nil {
				logging.Debug("resolver: membership lookup failed for user %s in guild %s: %v", userID, guildID, err)
				return
			}
			if member {
				mu.Lock()
				matched = append(matched, guildID)
				mu.Unlock()
			}
		}(guildID)
	}

	wg.Wait()
	return matched
}
