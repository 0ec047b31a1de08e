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
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"Unbewohnte/TheTruth/internal/source"
	"Unbewohnte/TheTruth/internal/spreadsheet"
	"Unbewohnte/TheTruth/internal/state"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const defaultFeedSource = "all"

type Command struct {
	Name        string
	Description string
	Example     string
	Group       string
	Call        func(string) (string, error)
}

func (bot *Bot) NewCommand(cmd Command) {
	bot.commands = append(bot.commands, cmd)
}

func (bot *Bot) CommandByName(name string) *Command {
	for i := range bot.commands {
		if bot.commands[i].Name == name {
			return &bot.commands[i]
		}
	}

	return nil
}

func (bot *Bot) Commands() []Command {
	return bot.commands
}

func constructCommandHelpMessage(command Command) string {
	commandHelp := ""
	commandHelp += fmt.Sprintf("\n*Command:* \"%s\"\n*Description:* %s\n", command.Name, command.Description)
	if command.Example != "" {
		commandHelp += fmt.Sprintf("*Example:* `%s`\n", command.Example)
	}

	return commandHelp
}

func (bot *Bot) Help(args string) (string, error) {
	if strings.TrimSpace(args) != "" {
		// Only the requested command
		command := bot.CommandByName(strings.TrimSpace(args))
		if command != nil {
			return constructCommandHelpMessage(*command), nil
		}
	}

	var helpMessage string

	commandsByGroup := make(map[string][]Command)
	for _, command := range bot.commands {
		commandsByGroup[command.Group] = append(commandsByGroup[command.Group], command)
	}

	groups := []string{}
	for g := range commandsByGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	for _, group := range groups {
		helpMessage += fmt.Sprintf("\n\n*[%s]*\n", group)
		for _, command := range commandsByGroup[group] {
			helpMessage += constructCommandHelpMessage(command)
		}
	}

	return helpMessage, nil
}

func (bot *Bot) About(args string) (string, error) {
	return `*TheTruth*
Checks claims against live web sources and asks a local language model for a verdict. Images are described by a vision model and inspected for metadata.

Source code: https://github.com/Unbewohnte/TheTruth
License: GPLv3`, nil
}

// begin starts phase or explains why another request has to finish first.
func (bot *Bot) begin(phase state.Phase) (state.State, error) {
	snapshot, err := bot.store.Begin(phase)
	if err != nil {
		return snapshot, eris.New(labelsFor(snapshot.Language).busy)
	}
	return snapshot, nil
}

func (bot *Bot) Verify(args string) (string, error) {
	claimText := strings.TrimSpace(args)
	if claimText == "" {
		return "", eris.New("no claim given")
	}

	snapshot, err := bot.begin(state.Verifying)
	if err != nil {
		return "", err
	}

	claim := source.NewClaim(claimText, string(snapshot.Category), string(snapshot.Language))
	result := bot.service.Verify(bot.ctx, claim)
	bot.store.Apply(func(s state.State) state.State { return state.Verified(s, result) })

	return formatResult(result), nil
}

func (bot *Bot) loadFeed(sourceTag string, offset int) (string, error) {
	snapshot, err := bot.begin(state.LoadingFeed)
	if err != nil {
		return "", err
	}

	items := bot.service.GetLiveFeed(bot.ctx, snapshot.Language, sourceTag, offset)
	if source.IsErrorSentinel(items) {
		bot.store.Apply(func(s state.State) state.State { return state.Failed(s, items[0].Snippet) })
	} else {
		bot.store.Apply(func(s state.State) state.State { return state.FeedLoaded(s, sourceTag, offset, items) })
	}

	return formatFeed(items, sourceTag, offset, snapshot.Language), nil
}

func (bot *Bot) Feed(args string) (string, error) {
	sourceTag := strings.ToLower(strings.TrimSpace(args))
	if sourceTag == "" {
		sourceTag = defaultFeedSource
	}

	return bot.loadFeed(sourceTag, 0)
}

func (bot *Bot) More(args string) (string, error) {
	snapshot := bot.store.Snapshot()
	if snapshot.FeedSource == "" {
		return bot.loadFeed(defaultFeedSource, 0)
	}

	return bot.loadFeed(snapshot.FeedSource, snapshot.FeedOffset)
}

func imagePath(args string) (string, error) {
	path := strings.Trim(strings.TrimSpace(args), "\"'")
	if path == "" {
		return "", eris.New("no image path given")
	}
	if _, err := os.Stat(path); err != nil {
		return "", eris.Wrapf(err, "image %s", path)
	}
	return path, nil
}

func (bot *Bot) Image(args string) (string, error) {
	path, err := imagePath(args)
	if err != nil {
		return "", err
	}

	snapshot, err := bot.begin(state.AnalyzingImage)
	if err != nil {
		return "", err
	}

	report := bot.service.AnalyzeImage(bot.ctx, path, snapshot.Language)
	bot.store.Apply(func(s state.State) state.State { return state.ImageAnalyzed(s, path, report) })

	return formatImageReport(labelsFor(snapshot.Language).imageReport, report), nil
}

func (bot *Bot) Metadata(args string) (string, error) {
	path, err := imagePath(args)
	if err != nil {
		return "", err
	}

	snapshot, err := bot.begin(state.ReadingMetadata)
	if err != nil {
		return "", err
	}

	report := bot.service.AnalyzeMetadata(bot.ctx, path, snapshot.Language)
	bot.store.Apply(func(s state.State) state.State { return state.MetadataLoaded(s, path, report) })

	return formatMetadata(labelsFor(snapshot.Language).metadata, report), nil
}

func (bot *Bot) DeepScan(args string) (string, error) {
	path, err := imagePath(args)
	if err != nil {
		return "", err
	}

	snapshot, err := bot.begin(state.DeepScanning)
	if err != nil {
		return "", err
	}

	items, err := bot.service.DeepScan(bot.ctx, path)
	if err != nil {
		bot.store.Apply(func(s state.State) state.State { return state.Failed(s, err.Error()) })
		return "", err
	}
	bot.store.Apply(func(s state.State) state.State { return state.DeepScanned(s, path, items) })

	return formatItems(labelsFor(snapshot.Language).deepScan, items, 0), nil
}

// AnalyzeUpload runs both forensic passes on an uploaded image.
func (bot *Bot) AnalyzeUpload(path string) (string, error) {
	report, err := bot.Image(path)
	if err != nil {
		return "", err
	}

	metadata, err := bot.Metadata(path)
	if err != nil {
		return report, err
	}

	return report + "\n\n" + metadata, nil
}

func (bot *Bot) SetLanguage(args string) (string, error) {
	if strings.TrimSpace(args) == "" {
		return "", eris.New("no language given, use de or en")
	}

	language := source.ParseLanguage(args)
	bot.store.Apply(func(s state.State) state.State { return state.WithLanguage(s, language) })
	bot.confMu.Lock()
	bot.conf.Language = string(language)
	bot.saveConfig()
	bot.confMu.Unlock()

	return fmt.Sprintf(labelsFor(language).languageSet, language), nil
}

func (bot *Bot) SetCategory(args string) (string, error) {
	if strings.TrimSpace(args) == "" {
		current := bot.store.Snapshot().Category
		var sb strings.Builder
		for _, category := range source.Categories {
			marker := ""
			if category == current {
				marker = " ←"
			}
			fmt.Fprintf(&sb, "- `%s`%s\n", category, marker)
		}
		return sb.String(), nil
	}

	category := source.ParseCategory(args)
	bot.store.Apply(func(s state.State) state.State { return state.WithCategory(s, category) })

	return fmt.Sprintf("Category: `%s`", category), nil
}

func (bot *Bot) Status(args string) (string, error) {
	status := bot.service.Status(bot.ctx)
	return formatStatus(status, bot.store.Snapshot().Language), nil
}

func (bot *Bot) ListModels(args string) (string, error) {
	models, err := bot.models.ListModels(bot.ctx)
	if err != nil {
		return "", eris.Wrap(err, "could not list models")
	}

	current := bot.models.SelectModel(bot.ctx)
	var sb strings.Builder
	sb.WriteString("*Models:*\n")
	for _, model := range models {
		if model == current {
			fmt.Fprintf(&sb, "- `%s` (in use)\n", model)
		} else {
			fmt.Fprintf(&sb, "- `%s`\n", model)
		}
	}

	return sb.String(), nil
}

func (bot *Bot) SetModel(args string) (string, error) {
	model := strings.TrimSpace(args)
	if model == "" {
		return "", eris.New("no model name given")
	}

	if model == "auto" {
		model = ""
	} else {
		models, err := bot.models.ListModels(bot.ctx)
		if err == nil {
			found := false
			for _, available := range models {
				if available == model {
					found = true
					break
				}
			}
			if !found {
				return "", eris.Errorf("model %q is not available", model)
			}
		}
	}

	bot.models.Pin(model)
	bot.confMu.Lock()
	bot.conf.Ollama.Model = model
	bot.saveConfig()
	bot.confMu.Unlock()

	if model == "" {
		return "Model is picked automatically", nil
	}
	return fmt.Sprintf("Model set to `%s`", model), nil
}

func (bot *Bot) PrintConfig(args string) (string, error) {
	bot.confMu.RLock()
	shown := *bot.conf
	shown.Web.Password = "***"
	shown.Web.JWTSecret = "***"
	shown.Telegram.ApiToken = "***"
	shown.Ollama.APIKey = "***"

	confJSON, err := json.MarshalIndent(shown, "", "  ")
	bot.confMu.RUnlock()
	if err != nil {
		return "", eris.Wrap(err, "marshal config")
	}

	return "```json\n" + string(confJSON) + "\n```", nil
}

// SaveXLSX writes the last verification result, or the feed with the
// "feed" argument, to an XLSX file in the working directory.
func (bot *Bot) SaveXLSX(args string) (string, error) {
	name, data, err := bot.exportXLSX(strings.TrimSpace(args))
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(name, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "write %s", name)
	}

	return fmt.Sprintf("Saved to `%s`", name), nil
}

// exportXLSX returns a file name and the workbook for what is on screen.
func (bot *Bot) exportXLSX(kind string) (string, []byte, error) {
	snapshot := bot.store.Snapshot()

	if kind == "feed" {
		if len(snapshot.Feed) == 0 {
			return "", nil, eris.New("no feed loaded yet")
		}
		buf, err := spreadsheet.FeedToXLSX(snapshot.Feed)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("TheTruth_feed_%s.xlsx", snapshot.FeedSource), buf.Bytes(), nil
	}

	if snapshot.Result == nil {
		return "", nil, eris.New("nothing verified yet")
	}
	buf, err := spreadsheet.ResultToXLSX(snapshot.Result)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("TheTruth_%s.xlsx", snapshot.Result.ID), buf.Bytes(), nil
}

func (bot *Bot) TogglePublicity(args string) (string, error) {
	bot.confMu.Lock()
	bot.conf.Telegram.Public = !bot.conf.Telegram.Public
	public := bot.conf.Telegram.Public
	bot.saveConfig()
	bot.confMu.Unlock()

	if public {
		return "Everyone can use the Telegram bot now", nil
	}
	return "Only allowed users can use the Telegram bot now", nil
}

func parseUserID(args string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "bad user ID %q", args)
	}
	return id, nil
}

func (bot *Bot) AddUser(args string) (string, error) {
	id, err := parseUserID(args)
	if err != nil {
		return "", err
	}

	bot.confMu.Lock()
	defer bot.confMu.Unlock()

	for _, allowed := range bot.conf.Telegram.AllowedUserIDs {
		if allowed == id {
			return fmt.Sprintf("User %d is already allowed", id), nil
		}
	}

	bot.conf.Telegram.AllowedUserIDs = append(bot.conf.Telegram.AllowedUserIDs, id)
	bot.saveConfig()

	return fmt.Sprintf("User %d added", id), nil
}

func (bot *Bot) RemoveUser(args string) (string, error) {
	id, err := parseUserID(args)
	if err != nil {
		return "", err
	}

	bot.confMu.Lock()
	defer bot.confMu.Unlock()

	kept := make([]int64, 0, len(bot.conf.Telegram.AllowedUserIDs))
	removed := false
	for _, allowed := range bot.conf.Telegram.AllowedUserIDs {
		if allowed == id {
			removed = true
			continue
		}
		kept = append(kept, allowed)
	}
	if !removed {
		return "", eris.Errorf("user %d is not in the list", id)
	}

	bot.conf.Telegram.AllowedUserIDs = kept
	bot.saveConfig()

	return fmt.Sprintf("User %d removed", id), nil
}

// saveConfig must be called with confMu held.
func (bot *Bot) saveConfig() {
	if bot.confPath == "" {
		return
	}

	if err := bot.conf.Save(bot.confPath); err != nil {
		zap.L().Error("bot: could not save config", zap.String("path", bot.confPath), zap.Error(err))
	}
}
