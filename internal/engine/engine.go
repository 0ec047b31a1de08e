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

// Package engine runs the external search engine script.
//
// Contract with the script:
//
//	<script> <query> <category> <language>      -> JSON array of {title, href, body}
//	<script> "FEED_MODE <source> <offset>" ...  -> JSON array, same shape plus feed fields
//	<script> METADATA_MODE <image path>         -> opaque report (printed as is)
//	<script> "LENS_MODE <image path>" ...       -> JSON array
//
// A non-zero exit status is a failure; stderr is the diagnostic text.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"Unbewohnte/TheTruth/internal/source"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	FeedMode     = "FEED_MODE"
	MetadataMode = "METADATA_MODE"
	LensMode     = "LENS_MODE"

	rawOutputPreview = 100
)

var ErrScriptNotFound = eris.New("engine: script not found")

type Engine struct {
	Interpreter string
	ScriptPath  string
	Timeout     time.Duration
}

// New resolves script relative to the directory of the running executable
// unless it is already absolute.
func New(interpreter string, script string, timeout time.Duration) *Engine {
	if interpreter == "" {
		interpreter = "python3"
	}

	return &Engine{
		Interpreter: interpreter,
		ScriptPath:  ResolveScriptPath(script),
		Timeout:     timeout,
	}
}

func ResolveScriptPath(script string) string {
	if filepath.IsAbs(script) {
		return script
	}

	executable, err := os.Executable()
	if err != nil {
		return filepath.Clean(script)
	}
	if resolved, err := filepath.EvalSymlinks(executable); err == nil {
		executable = resolved
	}

	return filepath.Join(filepath.Dir(executable), script)
}

// Search runs a claim-targeted web search.
func (e *Engine) Search(ctx context.Context, query string, category string, language string) ([]source.Item, error) {
	output, err := e.run(ctx, query, category, language)
	if err != nil {
		return nil, err
	}

	return parseItems(output)
}

// Feed fetches a page of recent articles for the given source tag.
func (e *Engine) Feed(ctx context.Context, sourceTag string, offset int) ([]source.Item, error) {
	return e.Search(ctx, fmt.Sprintf("%s %s %d", FeedMode, sourceTag, offset), "general", "en")
}

// Metadata returns the raw EXIF/C2PA report produced by the script.
func (e *Engine) Metadata(ctx context.Context, imagePath string) (string, error) {
	return e.run(ctx, MetadataMode, imagePath)
}

// DeepScan asks the engine for reverse image search results.
func (e *Engine) DeepScan(ctx context.Context, imagePath string) ([]source.Item, error) {
	return e.Search(ctx, LensMode+" "+imagePath, "general", "en")
}

func (e *Engine) run(ctx context.Context, args ...string) (string, error) {
	if _, err := os.Stat(e.ScriptPath); err != nil {
		return "", eris.Wrapf(ErrScriptNotFound, "engine: %s", e.ScriptPath)
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.Interpreter, append([]string{e.ScriptPath}, args...)...)
	cmd.Dir = filepath.Dir(e.ScriptPath)
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	zap.L().Debug("engine: script finished",
		zap.Strings("args", args),
		zap.Duration("took", time.Since(started)),
		zap.Int("stdout_bytes", stdout.Len()),
	)
	if err != nil {
		return "", eris.Wrapf(err, "engine: script failed: %s", strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}

func parseItems(output string) ([]source.Item, error) {
	var items []source.Item
	if err := json.Unmarshal([]byte(output), &items); err != nil {
		return nil, eris.Wrapf(err, "engine: failed to parse output. Raw: %s...", preview(output))
	}
	if items == nil {
		return []source.Item{}, nil
	}

	for i := range items {
		if items[i].Error != "" && items[i].Title == "" && items[i].URL == "" && items[i].Snippet == "" {
			items[i].Snippet = items[i].Error
		}
	}

	return items, nil
}

func preview(output string) string {
	runes := []rune(output)
	if len(runes) > rawOutputPreview {
		runes = runes[:rawOutputPreview]
	}
	return string(runes)
}
