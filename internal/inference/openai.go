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
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sashabaranov/go-openai"
)

// OpenAIBackend talks to any OpenAI-compatible server (LM Studio,
// llama.cpp server, vLLM, Ollama's /v1 endpoint).
type OpenAIBackend struct {
	client *openai.Client
}

func NewOpenAIBackend(baseURL string, apiKey string, httpClient *http.Client) *OpenAIBackend {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		baseURL = strings.TrimSuffix(baseURL, "/")
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL += "/v1"
		}
		config.BaseURL = baseURL
	}
	config.HTTPClient = httpClient

	return &OpenAIBackend{
		client: openai.NewClientWithConfig(config),
	}
}

func (o *OpenAIBackend) ListModels(ctx context.Context) ([]string, error) {
	list, err := o.client.ListModels(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "inference: list models")
	}

	names := make([]string, 0, len(list.Models))
	for _, model := range list.Models {
		names = append(names, model.ID)
	}

	return names, nil
}

func (o *OpenAIBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	message := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
	}

	if len(req.Images) == 0 {
		message.Content = req.Prompt
	} else {
		message.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
		}
		for _, image := range req.Images {
			message.MultiContent = append(message.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: "data:" + http.DetectContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image),
				},
			})
		}
	}

	request := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: []openai.ChatCompletionMessage{message},
	}
	if req.JSON {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	if req.Temperature != nil {
		request.Temperature = float32(*req.Temperature)
	}

	response, err := o.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", eris.Wrapf(err, "inference: chat completion with %s", req.Model)
	}
	if len(response.Choices) == 0 {
		return "", nil
	}

	return response.Choices[0].Message.Content, nil
}
