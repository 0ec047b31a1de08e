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
	"strings"

	"golang.org/x/text/language"
)

type Language string

const (
	German  Language = "de"
	English Language = "en"

	DefaultLanguage = German
)

// ParseLanguage normalizes things like "de-DE", "EN" or "english" to a
// two-letter code. Anything unparsable falls back to the default language.
func ParseLanguage(code string) Language {
	code = strings.TrimSpace(code)
	if code == "" {
		return DefaultLanguage
	}

	switch strings.ToLower(code) {
	case "deutsch", "german":
		return German
	case "english", "englisch":
		return English
	}

	tag, err := language.Parse(code)
	if err != nil {
		return DefaultLanguage
	}
	base, _ := tag.Base()

	return Language(base.String())
}

// Tag returns the x/text tag, used for message catalogs.
func (l Language) Tag() language.Tag {
	tag, err := language.Parse(string(l))
	if err != nil {
		return language.German
	}
	return tag
}

func (l Language) String() string {
	return string(l)
}

type Category string

const (
	CategoryGeneral  Category = "general"
	CategoryNews     Category = "news_politics"
	CategoryScience  Category = "science"
	CategoryMedicine Category = "medicine"
	CategoryFinance  Category = "finance"
	CategoryTech     Category = "tech"
	CategorySocial   Category = "social"
)

// Categories lists the codes the search engine has strategies for.
var Categories = []Category{
	CategoryGeneral,
	CategoryNews,
	CategoryScience,
	CategoryMedicine,
	CategoryFinance,
	CategoryTech,
	CategorySocial,
}

// ParseCategory maps UI aliases onto engine codes. Unknown values are kept
// as-is, the engine treats them like "general".
func ParseCategory(value string) Category {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "":
		return CategoryGeneral
	case "news", "politics":
		return CategoryNews
	}

	return Category(value)
}
