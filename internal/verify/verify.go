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

// Package verify glues search, translation and analysis together.
package verify

import (
	"context"
	"time"

	"Unbewohnte/TheTruth/internal/feed"
	"Unbewohnte/TheTruth/internal/similarity"
	"Unbewohnte/TheTruth/internal/source"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const allSources = "all"

// Searcher is the external search engine.
type Searcher interface {
	Search(ctx context.Context, query string, category string, language string) ([]source.Item, error)
	Feed(ctx context.Context, sourceTag string, offset int) ([]source.Item, error)
	Metadata(ctx context.Context, imagePath string) (string, error)
	DeepScan(ctx context.Context, imagePath string) ([]source.Item, error)
}

// FeedSource reads feeds without going through the engine.
type FeedSource interface {
	Supports(tag string) bool
	Fetch(ctx context.Context, tag string, offset int) ([]source.Item, error)
}

// Model is the language model client.
type Model interface {
	CheckReachable(ctx context.Context) bool
	SelectModel(ctx context.Context) string
	AnalyzeClaim(ctx context.Context, claim string, sources []source.Item, language source.Language) string
	TranslateSources(ctx context.Context, sources []source.Item)
	AnalyzeImage(ctx context.Context, path string, language source.Language) string
}

type Service struct {
	Searcher Searcher
	Model    Model
	// Feeds is optional; nil routes every feed request to the engine
	Feeds FeedSource
}

func NewService(searcher Searcher, model Model, feeds FeedSource) *Service {
	return &Service{
		Searcher: searcher,
		Model:    model,
		Feeds:    feeds,
	}
}

// Verify searches for sources on claim and has the model judge it. The
// result is always returned; failures end up in its summary.
func (s *Service) Verify(ctx context.Context, claim source.Claim) *source.VerificationResult {
	result := source.NewVerificationResult(claim)
	p := printer(claim.Language)
	started := time.Now()

	sources, err := s.Searcher.Search(ctx, claim.Text, string(claim.Category), string(claim.Language))
	if err != nil {
		zap.L().Error("verify: search failed", zap.String("claim", claim.Text), zap.Error(err))
		result.AISummary = p.Sprintf(msgSearchError, err.Error())
		return result
	}

	sources = similarity.Dedupe(sources)
	if len(sources) == 0 {
		result.AISummary = p.Sprintf(msgNoSources)
		return result
	}

	// Sources are shown in German before the model explains them. English
	// results are never translated.
	if claim.Language == source.German {
		s.Model.TranslateSources(ctx, sources)
	}

	result.Sources = sources
	result.AISummary = s.Model.AnalyzeClaim(ctx, claim.Text, sources, claim.Language)
	result.IsVerified = true

	zap.L().Info("verify: claim checked",
		zap.String("id", result.ID),
		zap.Int("sources", len(sources)),
		zap.Duration("took", time.Since(started)),
	)

	return result
}

// EffectiveFeedSource maps the requested source to the one actually read.
// A German UI asking for everything gets the German outlets only, which
// need no translation.
func EffectiveFeedSource(lang source.Language, sourceTag string) string {
	if lang == source.German && sourceTag == allSources {
		return feed.AllGerman
	}
	return sourceTag
}

// GetLiveFeed returns a page of recent articles. Failures come back as a
// single item without title and URL carrying the error text.
func (s *Service) GetLiveFeed(ctx context.Context, lang source.Language, sourceTag string, offset int) []source.Item {
	effective := EffectiveFeedSource(lang, sourceTag)

	items, err := s.fetchFeed(ctx, effective, offset)
	if err != nil {
		zap.L().Error("verify: feed failed", zap.String("source", effective), zap.Error(err))
		return []source.Item{source.ErrorItem(printer(lang).Sprintf(msgFeedError, err.Error()))}
	}

	if source.IsErrorSentinel(items) {
		return items
	}

	if lang == source.German && effective != feed.AllGerman {
		s.Model.TranslateSources(ctx, items)
	}

	return items
}

func (s *Service) fetchFeed(ctx context.Context, tag string, offset int) ([]source.Item, error) {
	if s.Feeds != nil && s.Feeds.Supports(tag) {
		items, err := s.Feeds.Fetch(ctx, tag, offset)
		if err == nil {
			return items, nil
		}
		if !eris.Is(err, feed.ErrUnsupportedSource) {
			return nil, err
		}
	}

	return s.Searcher.Feed(ctx, tag, offset)
}

func (s *Service) AnalyzeImage(ctx context.Context, path string, lang source.Language) string {
	return s.Model.AnalyzeImage(ctx, path, lang)
}

// AnalyzeMetadata returns the engine's EXIF/C2PA report for the image.
func (s *Service) AnalyzeMetadata(ctx context.Context, path string, lang source.Language) string {
	report, err := s.Searcher.Metadata(ctx, path)
	if err != nil {
		zap.L().Error("verify: metadata failed", zap.String("path", path), zap.Error(err))
		return printer(lang).Sprintf(msgMetadataError, err.Error())
	}
	return report
}

func (s *Service) DeepScan(ctx context.Context, path string) ([]source.Item, error) {
	return s.Searcher.DeepScan(ctx, path)
}

type Status struct {
	Reachable bool
	Model     string
}

// Status reports whether the model server is up and which model would be used.
func (s *Service) Status(ctx context.Context) Status {
	status := Status{Reachable: s.Model.CheckReachable(ctx)}
	status.Model = s.Model.SelectModel(ctx)
	return status
}
