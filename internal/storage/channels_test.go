package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petervdpas/goopchat/internal/chat"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "goopchat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestChannelCache(t *testing.T) {
	req := require.New(t)
	db := openTest(t)

	list, err := db.Channels()
	req.NoError(err)
	req.Empty(list)

	req.NoError(db.ReplaceChannels([]chat.Channel{
		{ID: "c2", Name: "zeta", Visibility: chat.VisibilityPublic, MemberIDs: []string{"u1", "u2"}},
		{ID: "c1", Name: "alpha", Visibility: chat.VisibilityPrivate},
	}))

	list, err = db.Channels()
	req.NoError(err)
	req.Len(list, 2)
	req.Equal("c2", list[0].ID, "server order is kept")
	req.Equal([]string{"u1", "u2"}, list[0].MemberIDs)
	req.Equal(chat.VisibilityPrivate, list[1].Visibility)
	req.Empty(list[1].MemberIDs)

	// Update in place, append a new one, delete
	req.NoError(db.UpsertChannel(chat.Channel{ID: "c2", Name: "zeta2"}))
	req.NoError(db.UpsertChannel(chat.Channel{ID: "c3", Name: "new"}))
	req.NoError(db.DeleteChannel("c1"))

	list, err = db.Channels()
	req.NoError(err)
	req.Equal([]string{"c2", "c3"}, []string{list[0].ID, list[1].ID})
	req.Equal("zeta2", list[0].Name)
	req.Equal(chat.VisibilityPublic, list[0].Visibility)

	// Replace drops what the server no longer lists
	req.NoError(db.ReplaceChannels([]chat.Channel{{ID: "c9", Name: "only"}}))
	list, err = db.Channels()
	req.NoError(err)
	req.Len(list, 1)
}

func TestLastChannel(t *testing.T) {
	req := require.New(t)
	db := openTest(t)

	id, err := db.LastChannel()
	req.NoError(err)
	req.Empty(id)

	req.NoError(db.SetLastChannel("c1"))
	req.NoError(db.SetLastChannel("c2"))
	id, err = db.LastChannel()
	req.NoError(err)
	req.Equal("c2", id)

	req.NoError(db.SetLastChannel(""))
	id, err = db.LastChannel()
	req.NoError(err)
	req.Empty(id)
}
