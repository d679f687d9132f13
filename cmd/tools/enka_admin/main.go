package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/kapu/enka-kakao-bot-go/internal/app"
	"github.com/kapu/enka-kakao-bot-go/internal/config"
	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"github.com/kapu/enka-kakao-bot-go/internal/service/alias"
	"github.com/kapu/enka-kakao-bot-go/internal/util"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	cmd := &cli.Command{
		Name:  "enka-admin",
		Usage: "Maintenance tasks for the Enka showcase bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "sync",
				Usage:  "Download the character reference documents and persist them",
				Action: runSync,
			},
			{
				Name:      "import-aliases",
				Usage:     "Import aliases from a JSON file of {\"<character id>\": [\"alias\", ...]}",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Validate the file without writing to the database",
					},
				},
				Action: runImportAliases,
			},
			{
				Name:   "list-aliases",
				Usage:  "Print the stored aliases",
				Action: runListAliases,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "enka-admin: %v\n", err)
		os.Exit(1)
	}
}

func setup(cmd *cli.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := util.NewLogger(cmd.String("log-level"), "")
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runSync(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	synchronizer := app.NewSynchronizer(cfg.Enka, logger)
	if err := synchronizer.Refresh(ctx, true); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	fmt.Printf("✓ %d characters written to %s\n", synchronizer.Current().Len(), cfg.Enka.DataDir)
	return nil
}

func runImportAliases(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	raw, err := os.ReadFile(cmd.Args().First())
	if err != nil {
		return err
	}
	var entries map[string][]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("invalid alias file: %w", err)
	}

	synchronizer := app.NewSynchronizer(cfg.Enka, logger)
	if err := synchronizer.Load(ctx); err != nil {
		return err
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if cmd.Bool("dry-run") {
		var unknown int
		for _, id := range ids {
			if synchronizer.Current().Find(domain.CharacterID(id)) == nil {
				fmt.Printf("✗ unknown character %s\n", id)
				unknown++
			}
		}
		fmt.Printf("[DRY RUN] %d characters, %d unknown\n", len(ids), unknown)
		return nil
	}

	db, err := app.OpenDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := alias.NewService(alias.NewRepository(db.GetDB(), logger), synchronizer, logger)
	if err := svc.Reload(ctx); err != nil {
		return err
	}

	var added, skipped int
	for _, id := range ids {
		for _, name := range entries[id] {
			if err := svc.Register(ctx, domain.CharacterID(id), name); err != nil {
				logger.Warn("Alias skipped", zap.String("character_id", id), zap.String("alias", name), zap.Error(err))
				skipped++
				continue
			}
			added++
		}
	}
	fmt.Printf("✓ %d aliases imported, %d skipped\n", added, skipped)
	return nil
}

func runListAliases(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := app.OpenDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := alias.NewRepository(db.GetDB(), logger).List(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Printf("%s\t%s\n", entry.CharacterID, entry.Alias)
	}
	return nil
}
