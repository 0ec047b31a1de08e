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

package similarity

import (
	"net/url"
	"strings"

	"Unbewohnte/TheTruth/internal/source"
)

// normalizeURL drops the scheme, "www.", the fragment, tracking parameters
// and a trailing slash.
func normalizeURL(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return strings.TrimSpace(raw)
	}

	query := parsed.Query()
	for key := range query {
		if strings.HasPrefix(key, "utm_") {
			query.Del(key)
		}
	}

	normalized := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.") + strings.TrimSuffix(parsed.Path, "/")
	if encoded := query.Encode(); encoded != "" {
		normalized += "?" + encoded
	}
	return normalized
}

// Dedupe keeps the first of every group of items pointing at the same
// page. Items from different pages are kept even when their titles match,
// syndicated stories stay separate sources. Order is preserved.
func Dedupe(items []source.Item) []source.Item {
	kept := make([]source.Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, item := range items {
		key := normalizeURL(item.URL)
		if key != "" {
			if _, exists := seen[key]; exists {
				continue
			}
			seen[key] = struct{}{}
		}
		kept = append(kept, item)
	}

	return kept
}
