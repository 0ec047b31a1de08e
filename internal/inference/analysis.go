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

package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"Unbewohnte/TheTruth/internal/source"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const noVisionResponse = "No response from vision model."

// AnalyzeClaim asks the model for a verdict on claim backed by sources.
// Failures are reported inline in the returned text.
func (c *Client) AnalyzeClaim(ctx context.Context, claim string, sources []source.Item, language source.Language) string {
	model := c.SelectModel(ctx)

	response, err := c.generate(ctx, GenerateRequest{
		Model:       model,
		Prompt:      buildClaimPrompt(claim, sources, language),
		Temperature: &analysisTemperature,
	})
	if err != nil {
		zap.L().Warn("inference: claim analysis failed", zap.String("model", model), zap.Error(err))
		if language == source.English {
			return fmt.Sprintf("AI error: %s. (Is Ollama running?)", err)
		}
		return fmt.Sprintf("AI Fehler: %s. (Läuft Ollama?)", err)
	}

	response = removeThinkBlock(response)
	if response == "" {
		if language == source.English {
			return "Error: no response from AI."
		}
		return "Fehler: Keine Antwort von AI erhalten."
	}

	return response
}

type translation struct {
	ID        int    `json:"id"`
	TitleDe   string `json:"title_de"`
	SnippetDe string `json:"snippet_de"`
}

// TranslateSources rewrites titles and snippets of sources into German in
// place. It is best effort: nothing is changed when anything goes wrong.
func (c *Client) TranslateSources(ctx context.Context, sources []source.Item) {
	if len(sources) == 0 {
		return
	}

	model := c.SelectModel(ctx)
	response, err := c.generate(ctx, GenerateRequest{
		Model:       model,
		Prompt:      buildTranslationPrompt(sources),
		JSON:        true,
		Temperature: &analysisTemperature,
	})
	if err != nil {
		zap.L().Debug("inference: source translation failed", zap.Error(err))
		return
	}

	translations, err := parseTranslations(response)
	if err != nil {
		zap.L().Debug("inference: unusable translation", zap.Error(err))
		return
	}

	for _, t := range translations {
		if t.ID < 0 || t.ID >= len(sources) {
			continue
		}
		sources[t.ID].Title = source.TranslatedPrefix + t.TitleDe
		sources[t.ID].Snippet = t.SnippetDe
	}
}

// parseTranslations extracts the JSON array between the first '[' and the
// last ']' of a reply, ignoring any chatter around it.
func parseTranslations(response string) ([]translation, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		return nil, eris.New("no JSON array in response")
	}

	var translations []translation
	if err := json.Unmarshal([]byte(response[start:end+1]), &translations); err != nil {
		return nil, eris.Wrap(err, "decode translations")
	}

	return translations, nil
}

// AnalyzeImage describes the image at path with the vision model, looking
// for signs of manipulation. German reports are translated from English.
func (c *Client) AnalyzeImage(ctx context.Context, path string, language source.Language) string {
	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("Analysis Error: %s", err)
	}

	report, err := c.generate(ctx, GenerateRequest{
		Model:  c.VisionModel,
		Prompt: imagePrompt,
		Images: [][]byte{image},
	})
	if err != nil {
		zap.L().Warn("inference: image analysis failed", zap.String("model", c.VisionModel), zap.Error(err))
		return fmt.Sprintf("Analysis Error: %s", err)
	}
	if report == "" {
		report = noVisionResponse
	}

	if language == source.German {
		return c.TranslateText(ctx, report, language)
	}

	return report
}

// TranslateText translates text into German. The input is returned when
// translation is not needed or fails.
func (c *Client) TranslateText(ctx context.Context, text string, language source.Language) string {
	if language != source.German {
		return text
	}

	translated, err := c.generate(ctx, GenerateRequest{
		Model:  c.SelectModel(ctx),
		Prompt: buildTextTranslationPrompt(text),
	})
	if err != nil {
		zap.L().Debug("inference: text translation failed", zap.Error(err))
		return text
	}

	translated = removeThinkBlock(translated)
	if translated == "" {
		return text
	}

	return translated
}
