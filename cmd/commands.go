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
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"Unbewohnte/TheTruth/internal/bot"
	"Unbewohnte/TheTruth/internal/config"
	"Unbewohnte/TheTruth/internal/source"
	"Unbewohnte/TheTruth/internal/state"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	flagLanguage string
	flagCategory string
	flagOffset   int
	flagXLSX     bool
)

// runOnce builds the app, applies the language and category flags and runs
// one registry command, printing its output.
func runOnce(cmd *cobra.Command, name string, args string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	applyFlags(app)

	output, err := app.CommandByName(name).Call(args)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)

	if flagXLSX {
		kind := ""
		if name == "feed" {
			kind = "feed"
		}
		saved, err := app.SaveXLSX(kind)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), saved)
	}

	return nil
}

func applyFlags(app *bot.Bot) {
	if flagLanguage != "" {
		language := source.ParseLanguage(flagLanguage)
		app.Store().Apply(func(s state.State) state.State { return state.WithLanguage(s, language) })
	}
	if flagCategory != "" {
		category := source.ParseCategory(flagCategory)
		app.Store().Apply(func(s state.State) state.State { return state.WithCategory(s, category) })
	}
}

var verifyCmd = &cobra.Command{
	Use:   "verify <claim>",
	Short: "Check a claim against live web sources",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, "verify", strings.Join(args, " "))
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed [source]",
	Short: "Show the live news feed (all, de_all, tagesschau, zeit, spiegel, nyt, guardian)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sourceTag := "all"
		if len(args) == 1 {
			sourceTag = args[0]
		}
		if flagOffset == 0 {
			return runOnce(cmd, "feed", sourceTag)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		applyFlags(app)

		// Start at the requested page
		app.Store().Apply(func(s state.State) state.State {
			s.FeedSource = sourceTag
			s.FeedOffset = flagOffset
			return s
		})
		output, err := app.More("")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), output)
		return nil
	},
}

func imageCommand(use string, short string, name string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <image>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, name, args[0])
		},
	}
}

var (
	imageCmd    = imageCommand("image", "Describe an image and look for signs of manipulation", "image")
	metadataCmd = imageCommand("metadata", "Print EXIF and C2PA metadata of an image", "metadata")
	deepscanCmd = imageCommand("deepscan", "Reverse image search", "deepscan")
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the model server and show the model in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, "status", "")
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available on the model server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd, "models", "")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to the configuration file",
	Args:  cobra.NoArgs,
	// The file may not exist yet, skip loading it
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		path := savePath()
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return eris.Errorf("%s already exists, use --force to overwrite", path)
		}

		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default configuration written to %s\n", path)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{verifyCmd, feedCmd, imageCmd, metadataCmd, deepscanCmd, statusCmd} {
		c.Flags().StringVarP(&flagLanguage, "lang", "l", "", "language of sources and verdict (de or en)")
	}
	verifyCmd.Flags().StringVarP(&flagCategory, "category", "c", "", "search category ("+categoryList()+")")
	verifyCmd.Flags().BoolVar(&flagXLSX, "xlsx", false, "also save the result as an XLSX file")
	feedCmd.Flags().IntVar(&flagOffset, "offset", 0, "number of articles to skip")
	feedCmd.Flags().BoolVar(&flagXLSX, "xlsx", false, "also save the feed as an XLSX file")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(verifyCmd, feedCmd, imageCmd, metadataCmd, deepscanCmd, statusCmd, modelsCmd, configCmd)
}

func categoryList() string {
	names := make([]string, 0, len(source.Categories))
	for _, category := range source.Categories {
		names = append(names, string(category))
	}
	return strings.Join(names, ", ")
}
