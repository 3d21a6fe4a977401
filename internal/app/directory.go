package app

import (
	"context"
	"fmt"
	"log"
	"slices"

	"github.com/samber/lo"

	"github.com/petervdpas/goopchat/internal/api"
	"github.com/petervdpas/goopchat/internal/chat"
	"github.com/petervdpas/goopchat/internal/proto"
)

// Channels returns the last known channel list.
func (c *Coordinator) Channels() []chat.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.channels)
}

// ListChannels refreshes the channel list from the server. When the server
// cannot be reached the cached list is served instead and the REST error is
// only returned if there is no cache to fall back on.
func (c *Coordinator) ListChannels(ctx context.Context) ([]chat.Channel, error) {
	list, err := c.api.ListChannels(ctx)
	if err != nil {
		cached, cerr := c.cachedChannels()
		if cerr != nil || len(cached) == 0 {
			return nil, fmt.Errorf("list channels: %w", err)
		}
		log.Printf("COORD: list channels: %v (serving %d cached)", err, len(cached))
		c.setChannels(cached)
		return cached, nil
	}

	c.setChannels(list)
	if c.cache != nil {
		if err := c.cache.ReplaceChannels(list); err != nil {
			log.Printf("COORD: cache channels: %v", err)
		}
	}
	if active, ok := c.sess.Active(); ok {
		if fresh, found := lo.Find(list, func(ch chat.Channel) bool { return ch.ID == active.ID }); found {
			c.sess.Refresh(fresh)
		}
	}
	return slices.Clone(list), nil
}

func (c *Coordinator) CreateChannel(ctx context.Context, name, description string, vis chat.Visibility, memberIDs []string) (chat.Channel, error) {
	ch, err := c.api.CreateChannel(ctx, api.CreateChannelRequest{
		Name:        name,
		Description: description,
		Type:        string(vis),
		Members:     memberIDs,
	})
	if err != nil {
		return chat.Channel{}, err
	}
	c.upsert(ch)
	log.Printf("COORD: created channel %s (%s)", ch.ID, ch.Name)
	return ch, nil
}

// JoinChannel adds the local user to a public channel's members.
func (c *Coordinator) JoinChannel(ctx context.Context, channelID string) (chat.Channel, error) {
	ch, err := c.api.JoinChannel(ctx, channelID)
	if err != nil {
		return chat.Channel{}, err
	}
	c.upsert(ch)
	return ch, nil
}

// LeaveChannel removes the local user from a channel. Leaving the active
// channel leaves no channel active.
func (c *Coordinator) LeaveChannel(ctx context.Context, channelID string) (chat.Channel, error) {
	ch, err := c.api.LeaveChannel(ctx, channelID)
	if err != nil {
		return chat.Channel{}, err
	}
	c.upsert(ch)
	c.dropActive(channelID)
	return ch, nil
}

func (c *Coordinator) UpdateChannel(ctx context.Context, channelID, name, description string) (chat.Channel, error) {
	ch, err := c.api.UpdateChannel(ctx, channelID, name, description)
	if err != nil {
		return chat.Channel{}, err
	}
	c.upsert(ch)
	return ch, nil
}

// DeleteChannel removes a channel. Deleting the active channel leaves no
// channel active.
func (c *Coordinator) DeleteChannel(ctx context.Context, channelID string) error {
	if err := c.api.DeleteChannel(ctx, channelID); err != nil {
		return err
	}

	c.mu.Lock()
	c.channels = slices.DeleteFunc(c.channels, func(ch chat.Channel) bool { return ch.ID == channelID })
	c.mu.Unlock()

	if c.cache != nil {
		if err := c.cache.DeleteChannel(channelID); err != nil {
			log.Printf("COORD: cache delete %s: %v", channelID, err)
		}
	}
	c.dropActive(channelID)
	return nil
}

// SelectChannel makes the channel with the given id or name active. The
// channel is active even when its first page fails to load.
func (c *Coordinator) SelectChannel(ctx context.Context, ref string) (chat.Channel, error) {
	ch, ok := c.FindChannel(ref)
	if !ok {
		return chat.Channel{}, fmt.Errorf("%w: %s", ErrUnknownChannel, ref)
	}
	if err := c.SendTyping(false); err != nil {
		log.Printf("COORD: stop typing: %v", err)
	}

	err := c.sess.Switch(ctx, ch)
	if c.cache != nil {
		if cerr := c.cache.SetLastChannel(ch.ID); cerr != nil {
			log.Printf("COORD: remember channel: %v", cerr)
		}
	}
	return ch, err
}

// RestoreLastChannel selects the channel that was active when the client
// last ran, if it still exists.
func (c *Coordinator) RestoreLastChannel(ctx context.Context) (chat.Channel, bool, error) {
	if c.cache == nil {
		return chat.Channel{}, false, nil
	}
	id, err := c.cache.LastChannel()
	if err != nil || id == "" {
		return chat.Channel{}, false, err
	}
	if _, ok := c.FindChannel(id); !ok {
		return chat.Channel{}, false, nil
	}
	ch, err := c.SelectChannel(ctx, id)
	return ch, true, err
}

// Search queries messages, limited to the active channel when scoped.
func (c *Coordinator) Search(ctx context.Context, query string, scoped bool) ([]chat.Message, error) {
	channelID := ""
	if scoped {
		active, ok := c.sess.Active()
		if !ok {
			return nil, chat.ErrNoActiveChannel
		}
		channelID = active.ID
	}
	return c.api.Search(ctx, query, channelID)
}

func (c *Coordinator) Users(ctx context.Context) ([]proto.UserSummary, error) {
	return c.api.Users(ctx)
}

func (c *Coordinator) cachedChannels() ([]chat.Channel, error) {
	if c.cache == nil {
		return nil, nil
	}
	return c.cache.Channels()
}

func (c *Coordinator) setChannels(list []chat.Channel) {
	c.mu.Lock()
	c.channels = slices.Clone(list)
	c.mu.Unlock()
}

// upsert replaces a channel in the list or appends it, updates the cache
// and refreshes the active copy.
func (c *Coordinator) upsert(ch chat.Channel) {
	c.mu.Lock()
	if i := slices.IndexFunc(c.channels, func(x chat.Channel) bool { return x.ID == ch.ID }); i >= 0 {
		c.channels[i] = ch
	} else {
		c.channels = append(c.channels, ch)
	}
	c.mu.Unlock()

	if c.cache != nil {
		if err := c.cache.UpsertChannel(ch); err != nil {
			log.Printf("COORD: cache channel %s: %v", ch.ID, err)
		}
	}
	c.sess.Refresh(ch)
}

func (c *Coordinator) dropActive(channelID string) {
	active, ok := c.sess.Active()
	if !ok || active.ID != channelID {
		return
	}
	c.mu.Lock()
	c.typingIn = ""
	c.mu.Unlock()
	c.sess.Clear()
	if c.cache != nil {
		if err := c.cache.SetLastChannel(""); err != nil {
			log.Printf("COORD: forget channel: %v", err)
		}
	}
}
