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
	"regexp"
	"strings"
	"sync"
	"time"

	"Unbewohnte/TheTruth/internal/config"

	"go.uber.org/zap"
)

const (
	DefaultFallbackModel = "llama3"
	DefaultVisionModel   = "bakllava"
)

var DefaultPreferredModels = []string{"llama3", "mistral", "gemma"}

// Для более детерминированного вывода
var analysisTemperature = 0.2

type Client struct {
	Backend         Backend
	VisionModel     string
	FallbackModel   string
	PreferredModels []string
	Debug           bool

	// pinned is used as is when set, otherwise a model is picked per call
	mu     sync.RWMutex
	pinned string
}

func NewClient(backend Backend) *Client {
	return &Client{
		Backend:         backend,
		VisionModel:     DefaultVisionModel,
		FallbackModel:   DefaultFallbackModel,
		PreferredModels: DefaultPreferredModels,
	}
}

// NewClientFromConfig builds the backend and client described by conf.
func NewClientFromConfig(conf config.OllamaConf, debug bool) (*Client, error) {
	backend, err := NewBackend(
		conf.Provider,
		conf.BaseURL,
		conf.APIKey,
		time.Duration(conf.QueryTimeoutSeconds)*time.Second,
	)
	if err != nil {
		return nil, err
	}

	client := NewClient(backend)
	client.Pin(conf.Model)
	client.Debug = debug
	if conf.VisionModel != "" {
		client.VisionModel = conf.VisionModel
	}
	if conf.FallbackModel != "" {
		client.FallbackModel = conf.FallbackModel
	}
	if len(conf.PreferredModels) > 0 {
		client.PreferredModels = conf.PreferredModels
	}

	return client, nil
}

// CheckReachable reports whether the model server answers a model list query.
func (c *Client) CheckReachable(ctx context.Context) bool {
	_, err := c.Backend.ListModels(ctx)
	if err != nil {
		zap.L().Debug("inference: server unreachable", zap.Error(err))
		return false
	}
	return true
}

// Pin makes every call use model. An empty name restores automatic selection.
func (c *Client) Pin(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned = model
}

// Pinned returns the pinned model, empty when the model is picked per call.
func (c *Client) Pinned() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pinned
}

func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	return c.Backend.ListModels(ctx)
}

// SelectModel returns the pinned model or the best available one. It never
// fails: an unreachable server or an empty list yields the fallback model.
func (c *Client) SelectModel(ctx context.Context) string {
	if pinned := c.Pinned(); pinned != "" {
		return pinned
	}

	models, err := c.Backend.ListModels(ctx)
	if err != nil {
		zap.L().Debug("inference: list models failed, using fallback",
			zap.String("fallback", c.FallbackModel),
			zap.Error(err),
		)
		return c.FallbackModel
	}

	return pickModel(models, c.PreferredModels, c.FallbackModel)
}

func pickModel(models []string, preferred []string, fallback string) string {
	if len(models) == 0 {
		return fallback
	}

	for _, want := range preferred {
		for _, model := range models {
			if strings.Contains(model, want) {
				return model
			}
		}
	}

	return models[0]
}

func (c *Client) generate(ctx context.Context, req GenerateRequest) (string, error) {
	if c.Debug {
		zap.L().Debug("inference: prompt",
			zap.String("model", req.Model),
			zap.Bool("json", req.JSON),
			zap.Int("images", len(req.Images)),
			zap.String("prompt", req.Prompt),
		)
	}

	response, err := c.Backend.Generate(ctx, req)
	if err != nil {
		return "", err
	}

	if c.Debug {
		zap.L().Debug("inference: response", zap.String("model", req.Model), zap.String("response", response))
	}

	return response, nil
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// removeThinkBlock strips the reasoning section some models emit before
// their answer. Text without one is returned untouched.
func removeThinkBlock(input string) string {
	if !strings.Contains(input, "<think>") {
		return input
	}
	return strings.TrimSpace(thinkBlock.ReplaceAllString(input, ""))
}
