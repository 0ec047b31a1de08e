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

// Package state holds what the user currently sees. Every surface renders
// a State snapshot and changes it only through the update functions below.
package state

import (
	"time"

	"Unbewohnte/TheTruth/internal/source"
)

type Phase string

const (
	Idle            Phase = "idle"
	Verifying       Phase = "verifying"
	LoadingFeed     Phase = "loading_feed"
	AnalyzingImage  Phase = "analyzing_image"
	ReadingMetadata Phase = "reading_metadata"
	DeepScanning    Phase = "deep_scanning"
)

type State struct {
	Language source.Language
	Category source.Category
	Phase    Phase
	Busy     bool

	Claim  string
	Result *source.VerificationResult

	Feed       []source.Item
	FeedSource string
	// FeedOffset is where the next page starts
	FeedOffset int

	ImagePath   string
	ImageReport string
	Metadata    string
	DeepScan    []source.Item

	Error     string
	UpdatedAt time.Time
}

func New(language source.Language) State {
	return State{
		Language:  language,
		Category:  source.CategoryGeneral,
		Phase:     Idle,
		UpdatedAt: time.Now(),
	}
}

func Started(s State, phase Phase) State {
	s.Phase = phase
	s.Busy = true
	s.Error = ""
	s.UpdatedAt = time.Now()
	return s
}

func finished(s State) State {
	s.Phase = Idle
	s.Busy = false
	s.UpdatedAt = time.Now()
	return s
}

func Verified(s State, result *source.VerificationResult) State {
	s.Claim = result.Query
	s.Result = result
	return finished(s)
}

// FeedLoaded replaces the feed with the first page or appends a later one.
func FeedLoaded(s State, sourceTag string, offset int, items []source.Item) State {
	if offset == 0 || sourceTag != s.FeedSource {
		s.Feed = append([]source.Item(nil), items...)
	} else {
		s.Feed = append(append([]source.Item(nil), s.Feed...), items...)
	}
	s.FeedSource = sourceTag
	s.FeedOffset = offset + len(items)
	return finished(s)
}

func ImageAnalyzed(s State, path string, report string) State {
	s.ImagePath = path
	s.ImageReport = report
	return finished(s)
}

func MetadataLoaded(s State, path string, report string) State {
	s.ImagePath = path
	s.Metadata = report
	return finished(s)
}

func DeepScanned(s State, path string, items []source.Item) State {
	s.ImagePath = path
	s.DeepScan = items
	return finished(s)
}

func Failed(s State, message string) State {
	s.Error = message
	return finished(s)
}

func WithLanguage(s State, language source.Language) State {
	s.Language = language
	s.UpdatedAt = time.Now()
	return s
}

func WithCategory(s State, category source.Category) State {
	s.Category = category
	s.UpdatedAt = time.Now()
	return s
}
