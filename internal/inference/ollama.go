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
	"net/http"
	"net/url"
	"strings"

	ollama "github.com/ollama/ollama/api"
	"github.com/rotisserie/eris"
)

type OllamaBackend struct {
	Client *ollama.Client
}

func NewOllamaBackend(baseURL string, httpClient *http.Client) (*OllamaBackend, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, eris.Wrapf(err, "inference: bad ollama url %q", baseURL)
	}

	return &OllamaBackend{
		Client: ollama.NewClient(base, httpClient),
	}, nil
}

// ListModels hits GET /api/tags.
func (o *OllamaBackend) ListModels(ctx context.Context) ([]string, error) {
	response, err := o.Client.List(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "inference: list models")
	}

	names := make([]string, 0, len(response.Models))
	for _, model := range response.Models {
		names = append(names, model.Name)
	}

	return names, nil
}

// Generate hits POST /api/generate with stream disabled.
func (o *OllamaBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	stream := false
	request := &ollama.GenerateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		Stream: &stream,
	}
	if req.JSON {
		request.Format = json.RawMessage(`"json"`)
	}
	for _, image := range req.Images {
		request.Images = append(request.Images, ollama.ImageData(image))
	}
	if req.Temperature != nil {
		request.Options = map[string]any{
			"temperature": *req.Temperature,
		}
	}

	var response strings.Builder
	err := o.Client.Generate(ctx, request, func(res ollama.GenerateResponse) error {
		response.WriteString(res.Response)
		return nil
	})
	if err != nil {
		return "", eris.Wrapf(err, "inference: generate with %s", req.Model)
	}

	return response.String(), nil
}
