package main

import (
	"context"
	"fmt"

	"github.com/warden-bot/warden/engine"
	"github.com/warden-bot/warden/platform"
)

// handleMessageCreate runs on the gateway read loop; it filters events
// the engine never sees and hands the rest to the scheduler, keyed by
// (author, guild) so one user's messages are processed in order.
func (s *Server) handleMessageCreate(msg platform.Message) error {
	if msg.Author.Bot {
		return nil
	}
	if msg.GuildID == "" {
		// direct messages are out of scope
		return nil
	}
	key := fmt.Sprintf("%s/%s", msg.Author.ID, msg.GuildID)
	return s.sched.AddWork(context.Background(), key, msg)
}

// processMessage is the scheduler work callback; errors are logged by
// the scheduler and the event dropped.
func (s *Server) processMessage(ctx context.Context, msg platform.Message) error {
	evt := engine.MessageEvent{
		ID:        msg.ID,
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		AuthorID:  msg.Author.ID,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
		Bot:       msg.Author.Bot,
	}
	return s.engine.ProcessMessage(ctx, evt)
}
