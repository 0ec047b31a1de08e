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

package verify

import (
	"Unbewohnte/TheTruth/internal/source"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	msgNoSources     = "No relevant sources found. AI analysis skipped."
	msgSearchError   = "Search error: %s"
	msgFeedError     = "Error fetching feed: %s"
	msgMetadataError = "Metadata Error: %s"
)

func init() {
	german := []struct{ key, text string }{
		{msgNoSources, "Keine relevanten Quellen gefunden. AI-Analyse übersprungen."},
		{msgSearchError, "Fehler bei der Suche: %s"},
		{msgFeedError, "Error fetching feed: %s"},
		{msgMetadataError, "Metadata Error: %s"},
	}
	for _, m := range german {
		_ = message.SetString(language.German, m.key, m.text)
	}

	for _, key := range []string{msgNoSources, msgSearchError, msgFeedError, msgMetadataError} {
		_ = message.SetString(language.English, key, key)
	}
}

// printer localizes to German for "de" and to English for everything else.
func printer(lang source.Language) *message.Printer {
	if lang == source.German {
		return message.NewPrinter(language.German)
	}
	return message.NewPrinter(language.English)
}
