package main

import (
	"aliasgame/internal/cache"
	"aliasgame/internal/config"
	"aliasgame/internal/service"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	var (
		envFile string
		file    string
		pack    string
	)

	cmd := &cobra.Command{
		Use:           "aliasd-seed",
		Short:         "Loads a newline-separated word list into a Redis word pack.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			config.SetupLogger(cfg.LogLevel, cfg.LogPretty)
			if pack == "" {
				pack = cfg.WordPack
			}

			words := service.DefaultWords()
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read %s: %w", file, err)
				}
				words = service.ParseWords(string(data))
			}
			if len(words) == 0 {
				return fmt.Errorf("no words found in %s", file)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr()})
			defer rdb.Close()
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("ping redis: %w", err)
			}

			if err := cache.NewWordCache(rdb, 0).SetPack(ctx, pack, words); err != nil {
				return err
			}
			log.Info().Str("pack", pack).Int("words", len(words)).Msg("word pack seeded")
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&envFile, "env-file", ".env", "optional dotenv file read before the environment")
	fs.StringVarP(&file, "file", "f", "", "word list, one word per line (default: built-in pack)")
	fs.StringVar(&pack, "pack", "", "pack name (default: WORD_PACK)")

	return cmd
}
