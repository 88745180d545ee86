package config

import (
	"encoding/json"
	"os"
	"strconv"
)

type Config struct {
	Bot       BotConfig       `json:"bot"`
	Roblox    RobloxConfig    `json:"roblox"`
	Database  DatabaseConfig  `json:"database"`
	API       APIConfig       `json:"api"`
	Detection DetectionConfig `json:"detection"`
	Logging   LoggingConfig   `json:"logging"`
}

type BotConfig struct {
	Token    string `json:"token"`
	ClientID string `json:"client_id"`
}

type RobloxConfig struct {
	Cookie  string `json:"cookie"`
	GroupID int64  `json:"group_id"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

type APIConfig struct {
	Port string `json:"port"`
}

type DetectionConfig struct {
	ChannelDeleteThreshold int `json:"channel_delete_threshold"`
	ChannelDeleteWindowSec int `json:"channel_delete_window_sec"`
	RoleDeleteThreshold    int `json:"role_delete_threshold"`
	RoleDeleteWindowSec    int `json:"role_delete_window_sec"`
	BanThreshold           int `json:"ban_threshold"`
	BanWindowSec           int `json:"ban_window_sec"`
	PermChangeThreshold    int `json:"perm_change_threshold"`
	PermChangeWindowSec    int `json:"perm_change_window_sec"`
	JoinThreshold          int `json:"join_threshold"`
	JoinWindowSec          int `json:"join_window_sec"`
	RaidDurationMin        int `json:"raid_duration_min"`
}

type LoggingConfig struct {
	Path  string `json:"path"`
	Level string `json:"level"`
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	GlobalConfig = cfg
	return cfg, nil
}

func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		cfg = DefaultConfig()
		applyEnvOverrides(cfg)
		GlobalConfig = cfg
	}
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		cfg.Bot.Token = token
	}
	if clientID := os.Getenv("CLIENT_ID"); clientID != "" {
		cfg.Bot.ClientID = clientID
	}
	if cookie := os.Getenv("ROBLOX_COOKIE"); cookie != "" {
		cfg.Roblox.Cookie = cookie
	}
	if groupID := os.Getenv("ROBLOX_GROUP_ID"); groupID != "" {
		if id, err := strconv.ParseInt(groupID, 10, 64); err == nil {
			cfg.Roblox.GroupID = id
		}
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.API.Port = port
	}
}

func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{},
		Database: DatabaseConfig{
			Path: "guardian.db",
		},
		API: APIConfig{
			Port: "5000",
		},
		Detection: DetectionConfig{
			ChannelDeleteThreshold: 3,
			ChannelDeleteWindowSec: 10,
			RoleDeleteThreshold:    3,
			RoleDeleteWindowSec:    10,
			BanThreshold:           3,
			BanWindowSec:           10,
			PermChangeThreshold:    3,
			PermChangeWindowSec:    30,
			JoinThreshold:          5,
			JoinWindowSec:          10,
			RaidDurationMin:        15,
		},
		Logging: LoggingConfig{
			Path:  "guardian.log",
			Level: "info",
		},
	}
}

func Get() *Config {
	if GlobalConfig == nil {
		return DefaultConfig()
	}
	return GlobalConfig
}
