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

package source

import (
	"time"

	"github.com/google/uuid"
)

// TranslatedPrefix marks titles that were machine translated.
const TranslatedPrefix = "[Übersetzt] "

// Item is a single search or feed result as produced by the search engine.
type Item struct {
	Title         string `json:"title"`
	URL           string `json:"href"`
	Snippet       string `json:"body"`
	PublishedDate string `json:"published_date,omitempty"`
	Byline        string `json:"byline,omitempty"`
	Source        string `json:"source,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ErrorItem builds the sentinel item used to carry an error through a feed.
func ErrorItem(message string) Item {
	return Item{Snippet: message}
}

// IsErrorSentinel reports whether a feed consists of a single item
// without title and URL, which is how errors travel through feed mode.
func IsErrorSentinel(items []Item) bool {
	return len(items) == 1 && items[0].Title == "" && items[0].URL == ""
}

// Claim is what the user wants checked.
type Claim struct {
	Text     string
	Category Category
	Language Language
}

func NewClaim(text string, category string, language string) Claim {
	return Claim{
		Text:     text,
		Category: ParseCategory(category),
		Language: ParseLanguage(language),
	}
}

// VerificationResult is built fresh for every request and is never stored.
type VerificationResult struct {
	ID         string
	Query      string
	Category   Category
	Language   Language
	Sources    []Item
	AISummary  string
	IsVerified bool
	CheckedAt  time.Time
}

func NewVerificationResult(claim Claim) *VerificationResult {
	return &VerificationResult{
		ID:        uuid.New().String(),
		Query:     claim.Text,
		Category:  claim.Category,
		Language:  claim.Language,
		Sources:   []Item{},
		CheckedAt: time.Now(),
	}
}
