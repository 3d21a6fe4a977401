package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/petervdpas/goopchat/internal/chat"
)

const metaLastChannel = "last_channel"

// ReplaceChannels stores list as the full channel directory, keeping the
// server's order.
func (d *DB) ReplaceChannels(list []chat.Channel) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM channels`); err != nil {
		return err
	}
	for i, ch := range list {
		if err := upsertChannel(tx, ch, i); err != nil {
			return fmt.Errorf("channel %s: %w", ch.ID, err)
		}
	}
	return tx.Commit()
}

// UpsertChannel stores or replaces one channel. New channels go last.
func (d *DB) UpsertChannel(ch chat.Channel) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var pos int
	if err := d.db.QueryRow(`
		SELECT COALESCE(
			(SELECT position FROM channels WHERE id = ?),
			(SELECT COALESCE(MAX(position), -1) + 1 FROM channels))`, ch.ID).Scan(&pos); err != nil {
		return err
	}
	return upsertChannel(d.db, ch, pos)
}

func (d *DB) DeleteChannel(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.db.Exec(`DELETE FROM channels WHERE id = ?`, id)
	return err
}

// Channels returns the cached directory in stored order.
func (d *DB) Channels() ([]chat.Channel, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rows, err := d.db.Query(`
		SELECT id, name, description, visibility, members
		FROM channels ORDER BY position, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chat.Channel
	for rows.Next() {
		var ch chat.Channel
		var vis, members string
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Description, &vis, &members); err != nil {
			return nil, err
		}
		ch.Visibility = chat.Visibility(vis)
		if err := json.Unmarshal([]byte(members), &ch.MemberIDs); err != nil {
			return nil, fmt.Errorf("channel %s members: %w", ch.ID, err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (d *DB) LastChannel() (string, error) {
	return d.GetMeta(metaLastChannel)
}

// SetLastChannel records the active channel; "" clears it.
func (d *DB) SetLastChannel(id string) error {
	return d.SetMeta(metaLastChannel, id)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertChannel(x execer, ch chat.Channel, pos int) error {
	members := ch.MemberIDs
	if members == nil {
		members = []string{}
	}
	mj, err := json.Marshal(members)
	if err != nil {
		return err
	}
	vis := string(ch.Visibility)
	if vis == "" {
		vis = string(chat.VisibilityPublic)
	}
	_, err = x.Exec(`
		INSERT INTO channels (id, name, description, visibility, members, position, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name        = excluded.name,
			description = excluded.description,
			visibility  = excluded.visibility,
			members     = excluded.members,
			position    = excluded.position,
			updated_at  = CURRENT_TIMESTAMP`,
		ch.ID, ch.Name, ch.Description, vis, string(mj), pos)
	return err
}
