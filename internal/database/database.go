package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound reports that the targeted guild has no configuration record.
var ErrNotFound = errors.New("guild config not found")

type Database struct {
	db *sql.DB
}

var globalDB *Database

// Initialize creates and initializes the SQLite database
func Initialize(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	globalDB = &Database{db: db}

	if err := globalDB.createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// Open returns a standalone Database, used by tests that must not share the
// global instance.
func Open(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	d := &Database{db: db}
	if err := d.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return d, nil
}

// GetDB returns the global database instance
func GetDB() *Database {
	return globalDB
}

// IsConnected checks if the database connection is alive
func IsConnected() bool {
	if globalDB == nil || globalDB.db == nil {
		return false
	}
	return globalDB.db.Ping() == nil
}

// Close closes the database connection
func Close() error {
	if globalDB != nil && globalDB.db != nil {
		return globalDB.db.Close()
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS guild_config (
		guild_id TEXT PRIMARY KEY,
		log_channel_id TEXT DEFAULT '',
		created_at INTEGER DEFAULT 0,
		updated_at INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS guild_events (
		guild_id TEXT NOT NULL,
		event_name TEXT NOT NULL,
		UNIQUE(guild_id, event_name)
	);

	CREATE INDEX IF NOT EXISTS idx_guild_events_guild ON guild_events(guild_id);

	CREATE TABLE IF NOT EXISTS event_actions (
		id TEXT PRIMARY KEY,
		guild_id TEXT NOT NULL,
		event_name TEXT NOT NULL,
		action_code TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_event_actions_guild ON event_actions(guild_id);
	CREATE INDEX IF NOT EXISTS idx_event_actions_event ON event_actions(guild_id, event_name);

	CREATE TABLE IF NOT EXISTS log_channels (
		id TEXT PRIMARY KEY,
		guild_id TEXT NOT NULL,
		event_name TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_log_channels_guild ON log_channels(guild_id);
	CREATE INDEX IF NOT EXISTS idx_log_channels_event ON log_channels(guild_id, event_name);
	`

	_, err := d.db.Exec(schema)
	return err
}

// GetGuildConfig retrieves a guild's configuration, or ErrNotFound if the
// guild has never been seen.
func (d *Database) GetGuildConfig(guildID string) (*GuildConfig, error) {
	var config GuildConfig
	err := d.db.QueryRow(
		`SELECT guild_id, log_channel_id, created_at, updated_at
		 FROM guild_config WHERE guild_id = ?`,
		guildID,
	).Scan(&config.GuildID, &config.LogChannelID, &config.CreatedAt, &config.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if config.Events, err = d.GetGuildEvents(guildID); err != nil {
		return nil, err
	}
	if config.EventActions, err = d.GetEventActions(guildID); err != nil {
		return nil, err
	}
	if config.LogChannels, err = d.GetLogChannels(guildID); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetOrCreateGuildConfig returns the guild's configuration, creating a
// default record if none exists. The insert-if-absent is a single statement
// so concurrent first references cannot produce duplicates.
func (d *Database) GetOrCreateGuildConfig(guildID string) (*GuildConfig, error) {
	now := time.Now().Unix()
	_, err := d.db.Exec(
		`INSERT INTO guild_config (guild_id, log_channel_id, created_at, updated_at)
		 VALUES (?, '', ?, ?)
		 ON CONFLICT(guild_id) DO NOTHING`,
		guildID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert guild config: %w", err)
	}

	return d.GetGuildConfig(guildID)
}

func (d *Database) guildExists(guildID string) (bool, error) {
	var one int
	err := d.db.QueryRow(`SELECT 1 FROM guild_config WHERE guild_id = ?`, guildID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// guardGuild is the shared gate for mutations: an unknown guild yields
// ErrNotFound so callers report "not applied" instead of failing mid-write.
func (d *Database) guardGuild(guildID string) error {
	exists, err := d.guildExists(guildID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

// SetLogChannel sets the guild's default log channel.
func (d *Database) SetLogChannel(guildID, channelID string) (OpResult, error) {
	if err := d.guardGuild(guildID); err != nil {
		return OpResult{}, err
	}

	r, err := d.db.Exec(
		`UPDATE guild_config SET log_channel_id = ?, updated_at = ? WHERE guild_id = ?`,
		channelID, time.Now().Unix(), guildID,
	)
	if err != nil {
		return OpResult{}, fmt.Errorf("failed to set log channel: %w", err)
	}
	n, _ := r.RowsAffected()
	return OpResult{Applied: true, Affected: n}, nil
}

// AddGuildEvents enables events for logging. Set-union semantics: inserting
// an already-enabled event is a no-op.
func (d *Database) AddGuildEvents(guildID string, events []string) (OpResult, error) {
	if err := d.guardGuild(guildID); err != nil {
		return OpResult{}, err
	}

	var affected int64
	for _, event := range events {
		r, err := d.db.Exec(
			`INSERT OR IGNORE INTO guild_events (guild_id, event_name) VALUES (?, ?)`,
			guildID, event,
		)
		if err != nil {
			return OpResult{Applied: true, Affected: affected}, fmt.Errorf("failed to add event %q: %w", event, err)
		}
		n, _ := r.RowsAffected()
		affected += n
	}
	d.touch(guildID)
	return OpResult{Applied: true, Affected: affected}, nil
}

// RemoveGuildEvents disables events for logging (set difference).
func (d *Database) RemoveGuildEvents(guildID string, events []string) (OpResult, error) {
	if err := d.guardGuild(guildID); err != nil {
		return OpResult{}, err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(events)), ",")
	args := make([]interface{}, 0, len(events)+1)
	args = append(args, guildID)
	for _, e := range events {
		args = append(args, e)
	}

	r, err := d.db.Exec(
		`DELETE FROM guild_events WHERE guild_id = ? AND event_name IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return OpResult{}, fmt.Errorf("failed to remove events: %w", err)
	}
	n, _ := r.RowsAffected()
	d.touch(guildID)
	return OpResult{Applied: true, Affected: n}, nil
}

// GetGuildEvents returns the set of enabled event names for a guild.
func (d *Database) GetGuildEvents(guildID string) ([]string, error) {
	rows, err := d.db.Query(
		`SELECT event_name FROM guild_events WHERE guild_id = ?`,
		guildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		events = append(events, name)
	}
	return events, rows.Err()
}

// AddEventActions stores action bindings, assigning each an opaque id used
// for later removal. Returns the assigned ids in input order.
func (d *Database) AddEventActions(guildID string, actions []EventAction) ([]string, OpResult, error) {
	if err := d.guardGuild(guildID); err != nil {
		return nil, OpResult{}, err
	}

	now := time.Now().Unix()
	ids := make([]string, 0, len(actions))
	for _, action := range actions {
		id := uuid.NewString()
		_, err := d.db.Exec(
			`INSERT INTO event_actions (id, guild_id, event_name, action_code, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			id, guildID, action.Event, action.ActionCode, now,
		)
		if err != nil {
			return ids, OpResult{Applied: true, Affected: int64(len(ids))}, fmt.Errorf("failed to add event action: %w", err)
		}
		ids = append(ids, id)
	}
	d.touch(guildID)
	return ids, OpResult{Applied: true, Affected: int64(len(ids))}, nil
}

// RemoveEventActionsByIDs removes action bindings by id.
func (d *Database) RemoveEventActionsByIDs(guildID string, ids []string) (OpResult, error) {
	if err := d.guardGuild(guildID); err != nil {
		return OpResult{}, err
	}

	var affected int64
	for _, id := range ids {
		r, err := d.db.Exec(
			`DELETE FROM event_actions WHERE guild_id = ? AND id = ?`,
			guildID, id,
		)
		if err != nil {
			return OpResult{Applied: true, Affected: affected}, fmt.Errorf("failed to remove event action %s: %w", id, err)
		}
		n, _ := r.RowsAffected()
		affected += n
	}
	d.touch(guildID)
	return OpResult{Applied: true, Affected: affected}, nil
}

// GetEventActions returns a guild's action bindings in insertion order.
// Ordering rides on rowid: created_at only has second granularity.
func (d *Database) GetEventActions(guildID string) ([]EventAction, error) {
	return d.queryActions(
		`SELECT id, event_name, action_code, created_at
		 FROM event_actions WHERE guild_id = ? ORDER BY rowid`,
		guildID,
	)
}

// GetEventActionsForEvent returns the action bindings for one event.
func (d *Database) GetEventActionsForEvent(guildID, event string) ([]EventAction, error) {
	return d.queryActions(
		`SELECT id, event_name, action_code, created_at
		 FROM event_actions WHERE guild_id = ? AND event_name = ? ORDER BY rowid`,
		guildID, event,
	)
}

func (d *Database) queryActions(query string, args ...interface{}) ([]EventAction, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []EventAction
	for rows.Next() {
		var a EventAction
		if err := rows.Scan(&a.ID, &a.Event, &a.ActionCode, &a.CreatedAt); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// AddLogChannels stores per-event log channel redirects, assigning ids.
func (d *Database) AddLogChannels(guildID string, channels []LogChannel) ([]string, OpResult, error) {
	if err := d.guardGuild(guildID); err != nil {
		return nil, OpResult{}, err
	}

	now := time.Now().Unix()
	ids := make([]string, 0, len(channels))
	for _, lc := range channels {
		id := uuid.NewString()
		_, err := d.db.Exec(
			`INSERT INTO log_channels (id, guild_id, event_name, channel_id, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			id, guildID, lc.Event, lc.ChannelID, now,
		)
		if err != nil {
			return ids, OpResult{Applied: true, Affected: int64(len(ids))}, fmt.Errorf("failed to add log channel: %w", err)
		}
		ids = append(ids, id)
	}
	d.touch(guildID)
	return ids, OpResult{Applied: true, Affected: int64(len(ids))}, nil
}

// RemoveLogChannelsByIDs removes log channel redirects by id.
func (d *Database) RemoveLogChannelsByIDs(guildID string, ids []string) (OpResult, error) {
	if err := d.guardGuild(guildID); err != nil {
		return OpResult{}, err
	}

	var affected int64
	for _, id := range ids {
		r, err := d.db.Exec(
			`DELETE FROM log_channels WHERE guild_id = ? AND id = ?`,
			guildID, id,
		)
		if err != nil {
			return OpResult{Applied: true, Affected: affected}, fmt.Errorf("failed to remove log channel %s: %w", id, err)
		}
		n, _ := r.RowsAffected()
		affected += n
	}
	d.touch(guildID)
	return OpResult{Applied: true, Affected: affected}, nil
}

// GetLogChannels returns a guild's log channel redirects in insertion
// order.
func (d *Database) GetLogChannels(guildID string) ([]LogChannel, error) {
	return d.queryLogChannels(
		`SELECT id, event_name, channel_id, created_at
		 FROM log_channels WHERE guild_id = ? ORDER BY rowid`,
		guildID,
	)
}

// GetLogChannelsForEvent returns the redirects configured for one event.
func (d *Database) GetLogChannelsForEvent(guildID, event string) ([]LogChannel, error) {
	return d.queryLogChannels(
		`SELECT id, event_name, channel_id, created_at
		 FROM log_channels WHERE guild_id = ? AND event_name = ? ORDER BY rowid`,
		guildID, event,
	)
}

func (d *Database) queryLogChannels(query string, args ...interface{}) ([]LogChannel, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []LogChannel
	for rows.Next() {
		var lc LogChannel
		if err := rows.Scan(&lc.ID, &lc.Event, &lc.ChannelID, &lc.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, lc)
	}
	return channels, rows.Err()
}

// RemoveGuild deletes every record belonging to a guild in one transaction.
func (d *Database) RemoveGuild(guildID string) (OpResult, error) {
	if err := d.guardGuild(guildID); err != nil {
		return OpResult{}, err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return OpResult{}, fmt.Errorf("failed to begin removal: %w", err)
	}
	defer tx.Rollback()

	var affected int64
	for _, stmt := range []string{
		`DELETE FROM guild_events WHERE guild_id = ?`,
		`DELETE FROM event_actions WHERE guild_id = ?`,
		`DELETE FROM log_channels WHERE guild_id = ?`,
		`DELETE FROM guild_config WHERE guild_id = ?`,
	} {
		r, err := tx.Exec(stmt, guildID)
		if err != nil {
			return OpResult{}, fmt.Errorf("failed to remove guild data: %w", err)
		}
		n, _ := r.RowsAffected()
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return OpResult{}, fmt.Errorf("failed to commit removal: %w", err)
	}
	return OpResult{Applied: true, Affected: affected}, nil
}

func (d *Database) touch(guildID string) {
	d.db.Exec(`UPDATE guild_config SET updated_at = ? WHERE guild_id = ?`, time.Now().Unix(), guildID)
}
