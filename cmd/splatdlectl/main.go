package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"splatdle/internal/archive"
	"splatdle/internal/backend"
	"splatdle/internal/catalog"
	"splatdle/internal/config"
	"splatdle/internal/discord"
	"splatdle/internal/logger"
	"splatdle/internal/puzzle"
	"splatdle/internal/scheduler"
	"splatdle/internal/stats"
)

const usage = `Usage: splatdlectl <command> [flags]

Commands:
  migrate                              apply the Postgres schema
  set-channel -guild ID -channel ID    register a guild's announcement channel
  view-channel -guild ID               show a guild's announcement channel
  leaderboard [-today] [-limit N]      print the global or today's leaderboard
  player -id ID                        print a player's stats card
  rotate                               run today's rollover if it has not run and print the weapon

Configuration is read from .env and the environment, as for the server.
`

type command func(ctx context.Context, cfg config.Config, b *backend.Backend, args []string) error

var commands = map[string]command{
	"migrate":      runMigrate,
	"set-channel":  runSetChannel,
	"view-channel": runViewChannel,
	"leaderboard":  runLeaderboard,
	"player":       runPlayer,
	"rotate":       runRotate,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err := run(cmd, os.Args[2:]); err != nil {
		logger.Error("%s: %v", os.Args[1], err)
		os.Exit(1)
	}
}

func run(cmd command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	b, err := backend.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.StoreDriver, err)
	}
	defer b.Close()

	return cmd(ctx, cfg, b, args)
}

func runMigrate(ctx context.Context, cfg config.Config, b *backend.Backend, args []string) error {
	m, ok := b.Store.(interface{ Migrate(context.Context) error })
	if !ok {
		logger.Info("%s schema is applied on open, nothing to do", b.Driver)
		return nil
	}
	if err := m.Migrate(ctx); err != nil {
		return err
	}
	logger.Success("Schema applied")
	return nil
}

func runSetChannel(ctx context.Context, cfg config.Config, b *backend.Backend, args []string) error {
	fs := flag.NewFlagSet("set-channel", flag.ExitOnError)
	guild := fs.String("guild", "", "Discord guild ID")
	channel := fs.String("channel", "", "Discord channel ID")
	fs.Parse(args)

	if *guild == "" || *channel == "" {
		return errors.New("-guild and -channel are required")
	}
	if err := b.SetAnnouncementTarget(ctx, scheduler.Target{GuildID: *guild, ChannelID: *channel}); err != nil {
		return err
	}
	logger.Success("Announcements for guild %s will be sent to channel %s", *guild, *channel)
	return nil
}

func runViewChannel(ctx context.Context, cfg config.Config, b *backend.Backend, args []string) error {
	fs := flag.NewFlagSet("view-channel", flag.ExitOnError)
	guild := fs.String("guild", "", "Discord guild ID")
	fs.Parse(args)

	if *guild == "" {
		return errors.New("-guild is required")
	}
	target, err := b.AnnouncementTarget(ctx, *guild)
	if err != nil {
		return err
	}
	if target == nil {
		fmt.Printf("No announcement channel set for guild %s\n", *guild)
		return nil
	}
	fmt.Printf("Guild %s announces in channel %s\n", target.GuildID, target.ChannelID)
	return nil
}

func runLeaderboard(ctx context.Context, cfg config.Config, b *backend.Backend, args []string) error {
	fs := flag.NewFlagSet("leaderboard", flag.ExitOnError)
	today := fs.Bool("today", false, "show today's results instead of the all-time ranking")
	limit := fs.Int("limit", 10, "number of players in the all-time ranking")
	fs.Parse(args)

	svc := stats.NewService(b)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if *today {
		entries, err := svc.TodaysLeaderboard(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "#\tPLAYER\tGUESSES\tSUBMITTED")
		for i, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", i+1, e.PlayerID, e.GuessCount, e.SubmittedAt.Format(time.TimeOnly))
		}
		return nil
	}

	players, err := svc.GlobalLeaderboard(ctx, *limit)
	if err != nil {
		return err
	}
	avg, err := svc.GlobalAverage(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "#\tPLAYER\tAVERAGE\tPLAYED\tSTREAK\tSCORE")
	for i, p := range players {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%d\t%d\t%.2f\n", i+1, p.PlayerID, p.AverageGuesses, p.TimesPlayed, p.Streak, p.WeightedScore)
	}
	fmt.Fprintf(w, "\nGlobal average: %.2f\n", avg)
	return nil
}

func runPlayer(ctx context.Context, cfg config.Config, b *backend.Backend, args []string) error {
	fs := flag.NewFlagSet("player", flag.ExitOnError)
	id := fs.String("id", "", "Discord user ID")
	fs.Parse(args)

	if *id == "" {
		return errors.New("-id is required")
	}
	card, err := stats.NewService(b).Player(ctx, *id)
	if errors.Is(err, stats.ErrPlayerNotFound) {
		fmt.Printf("Player %s has not played Splatdle yet\n", *id)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Player:          %s\n", card.PlayerID)
	fmt.Printf("Streak:          %d\n", card.Streak)
	fmt.Printf("Games played:    %d\n", card.TimesPlayed)
	fmt.Printf("Average guesses: %.2f (%s)\n", card.AverageGuesses, card.Performance)
	if card.PlayedToday {
		fmt.Printf("Today:           %d guesses\n", card.TodaysGuesses)
	}
	return nil
}

func runRotate(ctx context.Context, cfg config.Config, b *backend.Backend, args []string) error {
	weapons, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	history, err := archive.New(cfg.ArchivePath)
	if err != nil {
		return err
	}
	puzzles := puzzle.NewService(weapons, backend.PuzzleStore(cfg, b))

	schedCfg := scheduler.DefaultConfig()
	schedCfg.AnnouncementsEnabled = cfg.AnnouncementsEnabled && cfg.DiscordToken != ""
	bot := discord.NewBotClient(cfg.DiscordToken, discord.WithDiscordBaseURL(cfg.DiscordAPIURL))
	sched := scheduler.New(schedCfg, puzzles, b, discord.NewAnnouncer(bot, cfg.ImageBaseURL, cfg.PlayURL, cfg.ThemeColour),
		scheduler.WithArchiver(history))

	// Runs the same rollover as the server so streaks are reset before the
	// puzzle date moves on
	if err := sched.Prepare(ctx); err != nil {
		return err
	}
	today := puzzle.Today(time.Now())
	already := sched.LastDate() == today
	sched.Tick(ctx)
	if sched.LastDate() != today {
		return fmt.Errorf("rollover into %s did not complete", today)
	}

	rot, err := puzzles.Rotate(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Date:     %s\n", rot.Date)
	fmt.Printf("Weapon:   %s\n", rot.Current.Label())
	if rot.Previous != nil {
		fmt.Printf("Previous: %s\n", rot.Previous.Label())
	}
	if already {
		fmt.Println("(rollover already ran earlier today)")
	}
	return nil
}
