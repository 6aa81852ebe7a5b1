package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/hylla/dragboard/internal/domain"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Board    BoardConfig    `toml:"board"`
	Drag     DragConfig     `toml:"drag"`
	Logging  LoggingConfig  `toml:"logging"`
	Server   ServerConfig   `toml:"server"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type BoardConfig struct {
	SystemAuthor string         `toml:"system_author"`
	Columns      []ColumnConfig `toml:"columns"`
}

type ColumnConfig struct {
	Status   string `toml:"status"`
	Label    string `toml:"label"`
	WIPLimit int    `toml:"wip_limit"`
}

type DragConfig struct {
	// FrameInterval is a Go duration string; "0s" disables hover throttling.
	FrameInterval string `toml:"frame_interval"`
	// ClickCooldown suppresses the click that trails a drop.
	ClickCooldown string `toml:"click_cooldown"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

func defaultColumns() []ColumnConfig {
	out := make([]ColumnConfig, 0, 3)
	for _, column := range domain.DefaultColumns() {
		out = append(out, ColumnConfig{Status: string(column.Status), Label: column.Label})
	}
	return out
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Board: BoardConfig{
			SystemAuthor: domain.SystemAuthor,
			Columns:      defaultColumns(),
		},
		Drag: DragConfig{
			FrameInterval: "16ms",
			ClickCooldown: "250ms",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".dragboard/log",
			},
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:5437",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	// Columns listed in the file replace the defaults instead of extending them.
	var columns struct {
		Board struct {
			Columns []ColumnConfig `toml:"columns"`
		} `toml:"board"`
	}
	if err := toml.Unmarshal(content, &columns); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	if len(columns.Board.Columns) > 0 {
		cfg.Board.Columns = columns.Board.Columns
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	seenStatus := map[domain.Status]struct{}{}
	for idx, column := range c.Board.Columns {
		status, ok := domain.ParseStatus(column.Status)
		if !ok {
			return fmt.Errorf("board.columns[%d].status is unknown: %q", idx, column.Status)
		}
		if column.WIPLimit < 0 {
			return fmt.Errorf("board.columns[%d].wip_limit must be >= 0", idx)
		}
		if _, dup := seenStatus[status]; dup {
			return fmt.Errorf("board.columns[%d].status is duplicated: %s", idx, status)
		}
		seenStatus[status] = struct{}{}
	}

	if _, err := parseDuration("drag.frame_interval", c.Drag.FrameInterval); err != nil {
		return err
	}
	if _, err := parseDuration("drag.click_cooldown", c.Drag.ClickCooldown); err != nil {
		return err
	}

	if _, err := log.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	for name, endpoint := range map[string]string{
		"server.api_endpoint": c.Server.APIEndpoint,
		"server.mcp_endpoint": c.Server.MCPEndpoint,
	} {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint != "" && !strings.HasPrefix(endpoint, "/") {
			return fmt.Errorf("%s must start with /: %q", name, endpoint)
		}
	}
	return nil
}

// BoardColumns converts the configured columns into domain columns.
func (c Config) BoardColumns() []domain.Column {
	out := make([]domain.Column, 0, len(c.Board.Columns))
	for _, column := range c.Board.Columns {
		status, ok := domain.ParseStatus(column.Status)
		if !ok {
			continue
		}
		normalized, err := domain.NewColumn(status, column.Label, column.WIPLimit)
		if err != nil {
			continue
		}
		out = append(out, normalized)
	}
	return out
}

// FrameInterval returns the hover throttle interval.
func (c Config) FrameInterval() time.Duration {
	d, _ := parseDuration("drag.frame_interval", c.Drag.FrameInterval)
	return d
}

// ClickCooldown returns the post-drop click suppression window.
func (c Config) ClickCooldown() time.Duration {
	d, _ := parseDuration("drag.click_cooldown", c.Drag.ClickCooldown)
	return d
}

func parseDuration(name, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must be >= 0", name)
	}
	return d, nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
