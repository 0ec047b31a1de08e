/*
   TheTruth - claim verification against live sources with a local LLM
   Copyright (C) 2025  Unbewohnte (Kasyanov Nikolay Alexeevich)

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"Unbewohnte/TheTruth/internal/bot"
	"Unbewohnte/TheTruth/internal/config"
	"Unbewohnte/TheTruth/internal/engine"
	"Unbewohnte/TheTruth/internal/feed"
	"Unbewohnte/TheTruth/internal/inference"
	"Unbewohnte/TheTruth/internal/verify"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const feedHTTPTimeout = 20 * time.Second

var (
	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "thetruth",
	Short: "Fact-check claims against live web sources with a local LLM",
	Long: "Searches the web for sources on a claim, lets a local language model (Ollama) judge it " +
		"and inspects images for manipulation. Runs as a CLI, a local web UI or a Telegram bot.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if cfg.Debug {
			cfg.Log.Level = "debug"
		}
		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the configuration file (default ./"+config.DefaultFileName+")")
}

// savePath is where commands persist configuration changes.
func savePath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultFileName
}

// newApp wires the model client, the search engine and the command registry.
func newApp(ctx context.Context) (*bot.Bot, error) {
	client, err := inference.NewClientFromConfig(cfg.Ollama, cfg.Debug)
	if err != nil {
		return nil, err
	}

	searchEngine := engine.New(
		cfg.Engine.Interpreter,
		cfg.Engine.Script,
		time.Duration(cfg.Engine.TimeoutSeconds)*time.Second,
	)

	var feeds verify.FeedSource
	if cfg.Feed.Native {
		feeds = feed.NewReader(cfg.Feed.URLs, cfg.Feed.PageSize, &http.Client{Timeout: feedHTTPTimeout})
	}

	service := verify.NewService(searchEngine, client, feeds)

	zap.L().Debug("app: wired",
		zap.String("provider", cfg.Ollama.Provider),
		zap.String("script", searchEngine.ScriptPath),
		zap.Bool("native_feeds", cfg.Feed.Native),
	)

	return bot.NewBot(ctx, cfg, savePath(), service, client), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
