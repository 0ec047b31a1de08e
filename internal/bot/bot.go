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

package bot

import (
	"context"
	"strings"
	"sync"

	"Unbewohnte/TheTruth/internal/config"
	"Unbewohnte/TheTruth/internal/source"
	"Unbewohnte/TheTruth/internal/state"
	"Unbewohnte/TheTruth/internal/verify"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Models is the part of the model client the commands talk to directly.
type Models interface {
	ListModels(ctx context.Context) ([]string, error)
	SelectModel(ctx context.Context) string
	Pin(model string)
}

// Bot owns the command registry shared by the CLI, the web UI and Telegram.
type Bot struct {
	// confMu guards conf, commands change it while others read it
	confMu   sync.RWMutex
	conf     *config.Config
	confPath string
	ctx      context.Context
	service  *verify.Service
	models   Models
	store    *state.Store
	commands []Command
	api      *tgbotapi.BotAPI
}

// NewBot wires the registry. confPath is where configuration changes made
// by commands are saved; empty disables saving.
func NewBot(ctx context.Context, conf *config.Config, confPath string, service *verify.Service, models Models) *Bot {
	bot := &Bot{
		conf:     conf,
		confPath: confPath,
		ctx:      ctx,
		service:  service,
		models:   models,
		store:    state.NewStore(state.New(source.ParseLanguage(conf.Language))),
	}
	bot.Init()

	return bot
}

func (bot *Bot) Store() *state.Store {
	return bot.store
}

func (bot *Bot) Init() {
	bot.commands = nil

	bot.NewCommand(Command{
		Name:        "help",
		Description: "Print this help message or help on one command",
		Example:     "help verify",
		Group:       "General",
		Call:        bot.Help,
	})

	bot.NewCommand(Command{
		Name:        "about",
		Description: "Print information about TheTruth",
		Group:       "General",
		Call:        bot.About,
	})

	bot.NewCommand(Command{
		Name:        "status",
		Description: "Check whether the model server is running and which model is used",
		Group:       "General",
		Call:        bot.Status,
	})

	bot.NewCommand(Command{
		Name:        "conf",
		Description: "Print the current configuration",
		Group:       "General",
		Call:        bot.PrintConfig,
	})

	bot.NewCommand(Command{
		Name:        "verify",
		Description: "Check a claim against live web sources. Plain text without a command does the same",
		Example:     "verify Water boils at 100 degrees Celsius at sea level",
		Group:       "Fact check",
		Call:        bot.Verify,
	})

	bot.NewCommand(Command{
		Name:        "lang",
		Description: "Set the language of claims, sources and verdicts (de or en)",
		Example:     "lang en",
		Group:       "Fact check",
		Call:        bot.SetLanguage,
	})

	bot.NewCommand(Command{
		Name:        "category",
		Description: "Set the search category, or list categories without an argument",
		Example:     "category science",
		Group:       "Fact check",
		Call:        bot.SetCategory,
	})

	bot.NewCommand(Command{
		Name:        "feed",
		Description: "Show the live news feed of a source (all, de_all, tagesschau, zeit, spiegel, nyt, guardian)",
		Example:     "feed tagesschau",
		Group:       "Live feed",
		Call:        bot.Feed,
	})

	bot.NewCommand(Command{
		Name:        "more",
		Description: "Load the next page of the current feed",
		Group:       "Live feed",
		Call:        bot.More,
	})

	bot.NewCommand(Command{
		Name:        "image",
		Description: "Describe an image and look for signs of manipulation or AI generation",
		Example:     "image /home/user/photo.jpg",
		Group:       "Image forensics",
		Call:        bot.Image,
	})

	bot.NewCommand(Command{
		Name:        "metadata",
		Description: "Extract EXIF and C2PA metadata of an image",
		Example:     "metadata /home/user/photo.jpg",
		Group:       "Image forensics",
		Call:        bot.Metadata,
	})

	bot.NewCommand(Command{
		Name:        "deepscan",
		Description: "Reverse image search for an image",
		Example:     "deepscan /home/user/photo.jpg",
		Group:       "Image forensics",
		Call:        bot.DeepScan,
	})

	bot.NewCommand(Command{
		Name:        "xlsx",
		Description: "Save the last result (or the feed with \"feed\") as an XLSX file",
		Example:     "xlsx feed",
		Group:       "Export",
		Call:        bot.SaveXLSX,
	})

	bot.NewCommand(Command{
		Name:        "models",
		Description: "List the models available on the model server",
		Group:       "LLM",
		Call:        bot.ListModels,
	})

	bot.NewCommand(Command{
		Name:        "setmodel",
		Description: "Use this model for every request, \"auto\" picks the best available one",
		Example:     "setmodel llama3:8b",
		Group:       "LLM",
		Call:        bot.SetModel,
	})

	bot.NewCommand(Command{
		Name:        "togglepublic",
		Description: "Allow everyone or only listed users to use the Telegram bot",
		Group:       "Telegram",
		Call:        bot.TogglePublicity,
	})

	bot.NewCommand(Command{
		Name:        "adduser",
		Description: "Allow a Telegram user by ID (ask @userinfobot for yours)",
		Example:     "adduser 5293210034",
		Group:       "Telegram",
		Call:        bot.AddUser,
	})

	bot.NewCommand(Command{
		Name:        "rmuser",
		Description: "Revoke access of a Telegram user by ID",
		Example:     "rmuser 5293210034",
		Group:       "Telegram",
		Call:        bot.RemoveUser,
	})
}

// splitCommand separates the command name from its arguments. A leading
// slash is accepted so Telegram style input works everywhere.
func splitCommand(input string) (string, string) {
	input = strings.TrimSpace(input)
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return "", ""
	}

	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	// Telegram appends the bot name in groups: /verify@TheTruthBot
	if at := strings.Index(name, "@"); at > 0 {
		name = name[:at]
	}
	args := strings.TrimSpace(input[len(fields[0]):])

	return name, args
}

// Execute runs one line of user input. Text that is not a command is
// verified as a claim; unknown slash commands get suggestions.
func (bot *Bot) Execute(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil
	}

	name, args := splitCommand(input)
	if command := bot.CommandByName(name); command != nil {
		zap.L().Debug("bot: command", zap.String("name", name), zap.String("args", args))
		return command.Call(args)
	}

	if strings.HasPrefix(input, "/") {
		return "", eris.New(bot.unknownCommandMessage(name))
	}

	return bot.Verify(input)
}
