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
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// GenerateRequest is a single non-streamed generation.
type GenerateRequest struct {
	Model  string
	Prompt string
	// JSON asks the server to constrain the reply to JSON
	JSON bool
	// Images are raw image bytes, encoded by the backend
	Images      [][]byte
	Temperature *float64
}

// Backend is a model server.
type Backend interface {
	ListModels(ctx context.Context) ([]string, error)
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// NewBackend creates the backend for provider. Both share one long-lived
// http.Client with a fixed overall timeout.
func NewBackend(provider string, baseURL string, apiKey string, timeout time.Duration) (Backend, error) {
	httpClient := &http.Client{Timeout: timeout}

	switch provider {
	case ProviderOllama, "":
		return NewOllamaBackend(baseURL, httpClient)
	case ProviderOpenAI:
		return NewOpenAIBackend(baseURL, apiKey, httpClient), nil
	default:
		return nil, eris.Errorf("inference: unknown provider %q", provider)
	}
}
