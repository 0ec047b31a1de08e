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
	"fmt"
	"strings"

	"Unbewohnte/TheTruth/internal/source"
	"Unbewohnte/TheTruth/internal/verify"
)

type labels struct {
	claim       string
	category    string
	verdict     string
	sources     string
	verified    string
	unverified  string
	feed        string
	empty       string
	moreHint    string
	imageReport string
	metadata    string
	deepScan    string
	reachable   string
	unreachable string
	model       string
	busy        string
	languageSet string
}

var (
	germanLabels = labels{
		claim:       "Behauptung",
		category:    "Kategorie",
		verdict:     "Urteil",
		sources:     "Quellen",
		verified:    "✅ Geprüft",
		unverified:  "⚠️ Nicht geprüft",
		feed:        "Live-Feed",
		empty:       "Keine Einträge.",
		moreHint:    "Mit `more` weitere Einträge laden.",
		imageReport: "Bildanalyse",
		metadata:    "Metadaten",
		deepScan:    "Rückwärtssuche",
		reachable:   "✅ Ollama läuft",
		unreachable: "❌ Ollama ist nicht erreichbar",
		model:       "Modell",
		busy:        "Bitte warten, die vorherige Anfrage läuft noch.",
		languageSet: "Sprache: `%s`",
	}

	englishLabels = labels{
		claim:       "Claim",
		category:    "Category",
		verdict:     "Verdict",
		sources:     "Sources",
		verified:    "✅ Verified",
		unverified:  "⚠️ Not verified",
		feed:        "Live feed",
		empty:       "No entries.",
		moreHint:    "Use `more` to load more entries.",
		imageReport: "Image analysis",
		metadata:    "Metadata",
		deepScan:    "Reverse image search",
		reachable:   "✅ Ollama is running",
		unreachable: "❌ Ollama is not reachable",
		model:       "Model",
		busy:        "Please wait, the previous request is still running.",
		languageSet: "Language: `%s`",
	}
)

func labelsFor(language source.Language) labels {
	if language == source.English {
		return englishLabels
	}
	return germanLabels
}

func formatItems(title string, items []source.Item, offset int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s (%d):*\n", title, len(items))

	for i, item := range items {
		if item.URL != "" {
			fmt.Fprintf(&sb, "%d. [%s](%s)", offset+i+1, item.Title, item.URL)
		} else {
			fmt.Fprintf(&sb, "%d. %s", offset+i+1, item.Title)
		}
		if item.PublishedDate != "" {
			fmt.Fprintf(&sb, " _%s_", item.PublishedDate)
		}
		sb.WriteString("\n")
		if item.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", item.Snippet)
		}
	}

	return sb.String()
}

func formatResult(result *source.VerificationResult) string {
	l := labelsFor(result.Language)

	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s:* \"%s\"\n", l.claim, result.Query)
	fmt.Fprintf(&sb, "*%s:* %s\n", l.category, result.Category)
	if result.IsVerified {
		sb.WriteString(l.verified + "\n\n")
	} else {
		sb.WriteString(l.unverified + "\n\n")
	}
	fmt.Fprintf(&sb, "*%s:*\n%s\n", l.verdict, result.AISummary)

	if len(result.Sources) > 0 {
		sb.WriteString("\n")
		sb.WriteString(formatItems(l.sources, result.Sources, 0))
	}

	return sb.String()
}

func formatFeed(items []source.Item, sourceTag string, offset int, language source.Language) string {
	l := labelsFor(language)

	if source.IsErrorSentinel(items) {
		return "❌ " + items[0].Snippet
	}
	if len(items) == 0 {
		return fmt.Sprintf("*%s: %s*\n%s", l.feed, sourceTag, l.empty)
	}

	return formatItems(l.feed+": "+sourceTag, items, offset) + "\n" + l.moreHint
}

func formatImageReport(title string, report string) string {
	return fmt.Sprintf("*%s:*\n%s", title, report)
}

func formatMetadata(title string, report string) string {
	return fmt.Sprintf("*%s:*\n```\n%s\n```", title, strings.TrimSpace(report))
}

func formatStatus(status verify.Status, language source.Language) string {
	l := labelsFor(language)

	reachable := l.unreachable
	if status.Reachable {
		reachable = l.reachable
	}

	return fmt.Sprintf("%s\n*%s:* `%s`", reachable, l.model, status.Model)
}
