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

package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultFileName = "thetruth.json"
	EnvPrefix       = "THETRUTH"
)

type OllamaConf struct {
	Provider            string   `json:"provider" mapstructure:"provider"`
	BaseURL             string   `json:"base_url" mapstructure:"base_url"`
	APIKey              string   `json:"api_key" mapstructure:"api_key"`
	Model               string   `json:"model" mapstructure:"model"`
	VisionModel         string   `json:"vision_model" mapstructure:"vision_model"`
	FallbackModel       string   `json:"fallback_model" mapstructure:"fallback_model"`
	PreferredModels     []string `json:"preferred_models" mapstructure:"preferred_models"`
	QueryTimeoutSeconds uint     `json:"query_timeout_seconds" mapstructure:"query_timeout_seconds"`
}

type EngineConf struct {
	Interpreter    string `json:"interpreter" mapstructure:"interpreter"`
	Script         string `json:"script" mapstructure:"script"`
	TimeoutSeconds uint   `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

type FeedConf struct {
	Native   bool              `json:"native" mapstructure:"native"`
	PageSize int               `json:"page_size" mapstructure:"page_size"`
	URLs     map[string]string `json:"urls" mapstructure:"urls"`
}

type WebConf struct {
	Port      uint   `json:"port" mapstructure:"port"`
	Username  string `json:"username" mapstructure:"username"`
	Password  string `json:"password" mapstructure:"password"`
	JWTSecret string `json:"jwt_secret" mapstructure:"jwt_secret"`
}

type TelegramConf struct {
	ApiToken       string  `json:"api_token" mapstructure:"api_token"`
	Public         bool    `json:"is_public" mapstructure:"is_public"`
	AllowedUserIDs []int64 `json:"allowed_user_ids" mapstructure:"allowed_user_ids"`
}

type LogConf struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
}

type Config struct {
	Ollama   OllamaConf   `json:"ollama" mapstructure:"ollama"`
	Engine   EngineConf   `json:"engine" mapstructure:"engine"`
	Feed     FeedConf     `json:"feed" mapstructure:"feed"`
	Web      WebConf      `json:"web" mapstructure:"web"`
	Telegram TelegramConf `json:"telegram" mapstructure:"telegram"`
	Log      LogConf      `json:"log" mapstructure:"log"`
	Language string       `json:"language" mapstructure:"language"`
	Debug    bool         `json:"debug" mapstructure:"debug"`
}

func Default() *Config {
	return &Config{
		Ollama: OllamaConf{
			Provider:            "ollama",
			BaseURL:             "http://localhost:11434",
			Model:               "",
			VisionModel:         "bakllava",
			FallbackModel:       "llama3",
			PreferredModels:     []string{"llama3", "mistral", "gemma"},
			QueryTimeoutSeconds: 120,
		},
		Engine: EngineConf{
			Interpreter:    "python3",
			Script:         "engine/search_engine.py",
			TimeoutSeconds: 0,
		},
		Feed: FeedConf{
			Native:   false,
			PageSize: 20,
			URLs: map[string]string{
				"tagesschau": "https://www.tagesschau.de/xml/rss2/",
				"zeit":       "https://newsfeed.zeit.de/index",
				"spiegel":    "https://www.spiegel.de/schlagzeilen/tops/index.rss",
			},
		},
		Web: WebConf{
			Port:      8080,
			Username:  "admin",
			Password:  "admin",
			JWTSecret: "change-me",
		},
		Telegram: TelegramConf{
			ApiToken:       "",
			Public:         false,
			AllowedUserIDs: []int64{},
		},
		Log: LogConf{
			Level:  "info",
			Format: "console",
		},
		Language: "de",
		Debug:    false,
	}
}

func setDefaults(v *viper.Viper) {
	def := Default()

	v.SetDefault("ollama.provider", def.Ollama.Provider)
	v.SetDefault("ollama.base_url", def.Ollama.BaseURL)
	v.SetDefault("ollama.api_key", def.Ollama.APIKey)
	v.SetDefault("ollama.model", def.Ollama.Model)
	v.SetDefault("ollama.vision_model", def.Ollama.VisionModel)
	v.SetDefault("ollama.fallback_model", def.Ollama.FallbackModel)
	v.SetDefault("ollama.preferred_models", def.Ollama.PreferredModels)
	v.SetDefault("ollama.query_timeout_seconds", def.Ollama.QueryTimeoutSeconds)
	v.SetDefault("engine.interpreter", def.Engine.Interpreter)
	v.SetDefault("engine.script", def.Engine.Script)
	v.SetDefault("engine.timeout_seconds", def.Engine.TimeoutSeconds)
	v.SetDefault("feed.native", def.Feed.Native)
	v.SetDefault("feed.page_size", def.Feed.PageSize)
	v.SetDefault("feed.urls", def.Feed.URLs)
	v.SetDefault("web.port", def.Web.Port)
	v.SetDefault("web.username", def.Web.Username)
	v.SetDefault("web.password", def.Web.Password)
	v.SetDefault("web.jwt_secret", def.Web.JWTSecret)
	v.SetDefault("telegram.api_token", def.Telegram.ApiToken)
	v.SetDefault("telegram.is_public", def.Telegram.Public)
	v.SetDefault("telegram.allowed_user_ids", def.Telegram.AllowedUserIDs)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("language", def.Language)
	v.SetDefault("debug", def.Debug)
}

// Load reads the configuration. An explicit path must exist; without one,
// thetruth.json in the working directory is used when present.
// THETRUTH_* environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFileName, ".json"))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Save writes the configuration as indented JSON.
func (conf *Config) Save(filepath string) error {
	file, err := os.OpenFile(filepath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return eris.Wrapf(err, "config: open %s", filepath)
	}
	defer file.Close()

	jsonBytes, err := json.MarshalIndent(conf, "", "\t")
	if err != nil {
		return eris.Wrap(err, "config: marshal")
	}

	if _, err = file.Write(jsonBytes); err != nil {
		return eris.Wrapf(err, "config: write %s", filepath)
	}

	return nil
}

// InitLogger replaces the global zap logger according to cfg.
func InitLogger(cfg LogConf) error {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)
	// stdout is reserved for command output
	zapCfg.OutputPaths = []string{"stderr"}

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
