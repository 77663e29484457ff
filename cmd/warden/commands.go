package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/warden-bot/warden/cleaner"
	"github.com/warden-bot/warden/platform"
	"github.com/warden-bot/warden/store"
)

func slashCommands() []platform.Command {
	return []platform.Command{
		{
			Name:        "delay",
			Description: "Snooze the next auto-clean of this channel",
			Options: []platform.CommandOption{
				{Type: platform.OptionTypeInteger, Name: "minutes", Description: "How long to delay", Required: true},
			},
		},
		{
			Name:        "clean",
			Description: "Enable auto-clean for this channel",
			Options: []platform.CommandOption{
				{Type: platform.OptionTypeInteger, Name: "interval", Description: "Clean interval in minutes", Required: true},
				{Type: platform.OptionTypeInteger, Name: "messages", Description: "Number of messages to keep", Required: true},
			},
		},
		{
			Name:        "clean-off",
			Description: "Disable auto-clean for this channel",
		},
		{
			Name:        "prune",
			Description: "Clean this channel right now",
			Options: []platform.CommandOption{
				{Type: platform.OptionTypeInteger, Name: "keep", Description: "Number of messages to keep", Required: true},
			},
		},
		{
			Name:        "xp",
			Description: "Show your XP and level",
		},
		{
			Name:        "leaderboard",
			Description: "Show the top users by XP",
		},
		{
			Name:        "mod-stats",
			Description: "Show moderation action counts for this guild",
		},
		{
			Name:        "spam-filter",
			Description: "Turn the spam filter on or off",
			Options: []platform.CommandOption{
				{Type: platform.OptionTypeString, Name: "state", Description: "on or off", Required: true},
			},
		},
		{
			Name:        "leveling",
			Description: "Turn message XP on or off",
			Options: []platform.CommandOption{
				{Type: platform.OptionTypeString, Name: "state", Description: "on or off", Required: true},
			},
		},
	}
}

func (s *Server) handleInteraction(ic platform.Interaction) error {
	ctx := context.Background()
	reply, err := s.runCommand(ctx, ic)
	if err != nil {
		s.logger.Error("command failed", "command", ic.Data.Name, "err", err)
		reply = "Something went wrong, try again later."
	}
	return s.client.RespondToInteraction(ctx, ic, reply)
}

func (s *Server) runCommand(ctx context.Context, ic platform.Interaction) (string, error) {
	if ic.GuildID == "" || ic.Member == nil {
		return "Commands only work in guild channels.", nil
	}
	userID := ic.Member.User.ID

	switch ic.Data.Name {
	case "delay":
		return s.cmdDelay(ic)
	case "clean":
		return s.cmdClean(ctx, ic, userID)
	case "clean-off":
		return s.cmdCleanOff(ctx, ic, userID)
	case "prune":
		return s.cmdPrune(ctx, ic, userID)
	case "xp":
		return s.cmdXP(ctx, ic, userID)
	case "leaderboard":
		return s.cmdLeaderboard(ctx, ic)
	case "mod-stats":
		return s.cmdModStats(ctx, ic)
	case "spam-filter":
		return s.cmdToggle(ctx, ic, userID, "spam-filter")
	case "leveling":
		return s.cmdToggle(ctx, ic, userID, "leveling")
	default:
		return fmt.Sprintf("Unknown command: %s", ic.Data.Name), nil
	}
}

func (s *Server) cmdDelay(ic platform.Interaction) (string, error) {
	minutes, ok := ic.Data.IntOption("minutes")
	if !ok || minutes <= 0 {
		return "Minutes must be a positive number.", nil
	}
	if !s.cleaner.RequestDelay(ic.GuildID, ic.ChannelID, minutes) {
		return "No delays left for this channel until the next clean.", nil
	}
	remaining := s.cleaner.RemainingDelays(ic.GuildID, ic.ChannelID)
	return fmt.Sprintf("Auto-clean delayed by %d minutes. %d of %d delays left.", minutes, remaining, cleaner.MaxDelays), nil
}

func (s *Server) cmdClean(ctx context.Context, ic platform.Interaction, userID string) (string, error) {
	if !s.engine.IsMasterUser(ctx, userID) {
		return "You are not allowed to configure auto-clean.", nil
	}
	interval, _ := ic.Data.IntOption("interval")
	messages, _ := ic.Data.IntOption("messages")
	cfg := store.AutoCleanConfig{
		GuildID:         ic.GuildID,
		ChannelID:       ic.ChannelID,
		IntervalMinutes: interval,
		MessageCount:    messages,
		Enabled:         true,
	}
	if err := s.store.SetAutoCleanConfig(ctx, cfg); err != nil {
		return "", err
	}
	if err := s.store.LogModAction(ctx, store.ModAction{
		GuildID:     ic.GuildID,
		ModeratorID: userID,
		TargetID:    ic.ChannelID,
		ActionType:  "auto-clean-enable",
	}); err != nil {
		s.logger.Warn("logging mod action", "err", err)
	}
	return fmt.Sprintf("Auto-clean enabled: keeping the last %d messages.", messages), nil
}

func (s *Server) cmdCleanOff(ctx context.Context, ic platform.Interaction, userID string) (string, error) {
	if !s.engine.IsMasterUser(ctx, userID) {
		return "You are not allowed to configure auto-clean.", nil
	}
	if err := s.store.RemoveAutoCleanConfig(ctx, ic.GuildID, ic.ChannelID); err != nil {
		return "", err
	}
	return "Auto-clean disabled for this channel.", nil
}

func (s *Server) cmdPrune(ctx context.Context, ic platform.Interaction, userID string) (string, error) {
	if !s.engine.IsMasterUser(ctx, userID) {
		return "You are not allowed to clean channels.", nil
	}
	keep, ok := ic.Data.IntOption("keep")
	if !ok || keep < 0 {
		return "Keep must be zero or more.", nil
	}
	deleted, err := s.cleaner.CleanNow(ctx, ic.GuildID, ic.ChannelID, keep)
	if err != nil {
		return "", err
	}
	if err := s.store.LogModAction(ctx, store.ModAction{
		GuildID:     ic.GuildID,
		ModeratorID: userID,
		TargetID:    ic.ChannelID,
		ActionType:  "prune",
		Reason:      fmt.Sprintf("deleted %d", deleted),
	}); err != nil {
		s.logger.Warn("logging mod action", "err", err)
	}
	return fmt.Sprintf("Deleted %d messages.", deleted), nil
}

func (s *Server) cmdXP(ctx context.Context, ic platform.Interaction, userID string) (string, error) {
	xp, level, err := s.store.GetUserXP(ctx, store.ActivityKey{UserID: userID, GuildID: ic.GuildID})
	if err != nil {
		return "", err
	}
	if xp == 0 {
		return "No XP yet. Say something!", nil
	}
	return fmt.Sprintf("You have %d XP (level %d).", xp, level), nil
}

func (s *Server) cmdLeaderboard(ctx context.Context, ic platform.Interaction) (string, error) {
	top, err := s.engine.Leveling.Leaderboard(ctx, ic.GuildID, 10)
	if err != nil {
		return "", err
	}
	if len(top) == 0 {
		return "Nobody has any XP yet.", nil
	}
	var b strings.Builder
	b.WriteString("Top users:\n")
	for i, u := range top {
		fmt.Fprintf(&b, "%d. <@%s>: %d XP (level %d)\n", i+1, u.UserID, u.XP, u.Level)
	}
	return b.String(), nil
}

func (s *Server) cmdModStats(ctx context.Context, ic platform.Interaction) (string, error) {
	stats, err := s.store.ModActionStats(ctx, ic.GuildID)
	if err != nil {
		return "", err
	}
	if len(stats) == 0 {
		return "No moderation actions recorded.", nil
	}
	var b strings.Builder
	b.WriteString("Moderation actions:\n")
	for _, st := range stats {
		fmt.Fprintf(&b, "<@%s> %s: %d\n", st.ModeratorID, st.ActionType, st.Count)
	}
	return b.String(), nil
}

func (s *Server) cmdToggle(ctx context.Context, ic platform.Interaction, userID, which string) (string, error) {
	if !s.engine.IsMasterUser(ctx, userID) {
		return "You are not allowed to change guild settings.", nil
	}
	state := strings.ToLower(ic.Data.StringOption("state"))
	if state != "on" && state != "off" {
		return "State must be 'on' or 'off'.", nil
	}
	enabled := state == "on"

	settings, err := s.engine.GuildSettings(ctx, ic.GuildID)
	if err != nil {
		return "", err
	}
	switch which {
	case "spam-filter":
		settings.SpamFilterEnabled = enabled
	case "leveling":
		settings.LevelingEnabled = enabled
	}
	if err := s.engine.UpdateGuildSettings(ctx, settings); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s is now %s.", which, state), nil
}
