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
	"fmt"
	"strings"

	"Unbewohnte/TheTruth/internal/source"
)

// claimPrompt is one language's wording of the fact-check prompt.
type claimPrompt struct {
	persona       string
	claimLabel    string
	rulesHeader   string
	rules         []string
	resultsHeader string
	verdict       string
	justification string
}

var claimPrompts = map[source.Language]claimPrompt{
	source.English: {
		persona:     "You are an intelligent and objective Fact-Checker.",
		claimLabel:  "Claim",
		rulesHeader: "RULES FOR ANALYSIS:",
		rules: []string{
			"Use ONLY the provided sources.",
			"Understand synonyms and context (e.g. 'Trump' = 'US President' -> actions of the president are often actions of the USA).",
			"Ignore obviously irrelevant sources (e.g. questions in forums without answers).",
			"If even ONE reputable source confirms the claim or presents it as possible ('considering', 'reviewing'), it is not 'FALSE', but 'PARTIALLY TRUE' or 'UNCLEAR'.",
		},
		resultsHeader: "Search Results:",
		verdict:       "Provide your verdict: [TRUE / FALSE / UNCLEAR / PARTIALLY TRUE].",
		justification: "Justification (short): Summarize what the sources say. Explain contradictions if present.",
	},
	source.German: {
		persona:     "Du bist ein intelligenter und objektiver Fact-Checker.",
		claimLabel:  "Behauptung",
		rulesHeader: "REGELN FÜR DIE ANALYSE:",
		rules: []string{
			"Nutze NUR die bereitgestellten Quellen.",
			"Verstehe Synonyme und Kontexte (z.B. 'Trump' = 'US-Präsident' -> Handlungen des Präsidenten sind oft Handlungen der USA).",
			"Ignoriere offensichtlich irrelevante Quellen (z.B. Fragen in Foren ohne Antworten).",
			"Wenn auch nur EINE seriöse Quelle die Behauptung bestätigt oder als möglich darstellt ('prüft', 'erwägt'), ist es nicht 'FALSCH', sondern 'TEILWEISE WAHR' oder 'UNKLAR'.",
		},
		resultsHeader: "Suchergebnisse:",
		verdict:       "Gib dein Urteil ab: [WAHR / FALSCH / UNKLAR / TEILWEISE WAHR].",
		justification: "Begründung (kurz): Fasse zusammen, was die Quellen sagen. Erkläre Widersprüche falls vorhanden.",
	},
}

// Every language other than English gets the German prompt.
func promptFor(language source.Language) claimPrompt {
	if language == source.English {
		return claimPrompts[source.English]
	}
	return claimPrompts[source.German]
}

func buildClaimPrompt(claim string, sources []source.Item, language source.Language) string {
	wording := promptFor(language)

	var sb strings.Builder
	sb.WriteString(wording.persona + "\n")
	fmt.Fprintf(&sb, "%s: \"%s\"\n", wording.claimLabel, claim)
	sb.WriteString("\n")
	sb.WriteString(wording.rulesHeader + "\n")
	for i, rule := range wording.rules {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, rule)
	}
	sb.WriteString("\n")
	sb.WriteString(wording.resultsHeader + "\n")

	for i, item := range sources {
		fmt.Fprintf(&sb, "%d. [%s](%s): %s\n", i+1, item.Title, item.URL, item.Snippet)
	}
	sb.WriteString("\n")

	sb.WriteString(wording.verdict + "\n")
	sb.WriteString(wording.justification + "\n")

	return sb.String()
}

func buildTranslationPrompt(sources []source.Item) string {
	var sb strings.Builder
	sb.WriteString("Translate the following Titles and Snippets into German (Deutsch).\n")
	sb.WriteString("Keep the meaning precise. Return ONLY a JSON array of objects with 'id', 'title_de', 'snippet_de'.\n")
	sb.WriteString("\n")
	sb.WriteString("Input Data:\n")
	for i, item := range sources {
		fmt.Fprintf(&sb, "{\"id\": %d, \"title\": \"%s\", \"snippet\": \"%s\"}\n", i, item.Title, item.Snippet)
	}
	sb.WriteString("\n")
	sb.WriteString("Response format: [{\"id\": 0, \"title_de\": \"...\", \"snippet_de\": \"...\"}, ...]\n")

	return sb.String()
}

const imagePrompt = "Describe this image in detail. Are there any signs of manipulation or AI generation? Focus on visual artifacts, lighting inconsistencies, and anatomical errors."

func buildTextTranslationPrompt(text string) string {
	return fmt.Sprintf("Translate the following text into German (Deutsch). Maintain the tone and technical details.\n\nText:\n%s\n\nTranslation:", text)
}
