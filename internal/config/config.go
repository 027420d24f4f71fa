package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/John-Robertt/dhakaflix/internal/infra/cache"
	"github.com/John-Robertt/dhakaflix/internal/logging"
	"github.com/John-Robertt/dhakaflix/internal/meta"
	"github.com/John-Robertt/dhakaflix/internal/source"
)

// FileName 是默认配置文件名（位于 cwd）。
const FileName = "dhakaflix.toml"

const (
	// ErrCodeNotFound 表示显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	DefaultAddr      = ":7000"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "auto"
)

// DefaultMetaOrder 是元数据 provider 的默认尝试顺序；tmdb 仅在配置了 api key 时启用。
var DefaultMetaOrder = []string{"cinemeta", "tmdb"}

// CLIArgs 保留“是否显式指定”的信息，保证 CLI 能覆盖配置文件中的同名字段。
type CLIArgs struct {
	ConfigPath string

	Addr    string
	AddrSet bool

	ProxyURL    string
	ProxyURLSet bool

	CacheDir    string
	CacheDirSet bool

	LogLevel    string
	LogLevelSet bool

	LogFormat    string
	LogFormatSet bool
}

// FileConfig 对应 dhakaflix.toml 的解析结构。
type FileConfig struct {
	Server   ServerConfig   `toml:"server"`
	HTTP     HTTPConfig     `toml:"http"`
	Metadata MetadataConfig `toml:"metadata"`
	Cache    CacheConfig    `toml:"cache"`
	Log      LogConfig      `toml:"log"`
	Sources  []SourceConfig `toml:"sources"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type HTTPConfig struct {
	ProxyURL  string `toml:"proxy_url"`
	UserAgent string `toml:"user_agent"`
}

type MetadataConfig struct {
	CinemetaURL string   `toml:"cinemeta_url"`
	TMDBAPIKey  string   `toml:"tmdb_api_key"`
	Order       []string `toml:"order"`
}

// CacheConfig 中的时长使用 Go duration 字符串（例如 "12h"、"30m"）。
type CacheConfig struct {
	Dir           string `toml:"dir"`
	SearchTTL     string `toml:"search_ttl"`
	StreamTTL     string `toml:"stream_ttl"`
	SweepDelay    string `toml:"sweep_delay"`
	SweepInterval string `toml:"sweep_interval"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// EffectiveConfig 是合并并规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	ConfigPath string // 实际读取的配置文件；未读取为空

	Addr string

	ProxyURL  string
	UserAgent string

	CinemetaURL string
	TMDBAPIKey  string
	MetaOrder   []string

	// CacheDir 为空表示纯内存缓存。
	CacheDir      string
	SearchTTL     time.Duration
	StreamTTL     time.Duration
	SweepDelay    time.Duration
	SweepInterval time.Duration

	LogLevel  string
	LogFormat string

	Sources []source.Descriptor
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则：
// 1) CLI 提供 --config：必须存在
// 2) 否则读取 <cwd>/dhakaflix.toml（可选，不存在时全部使用默认值）
//
// 覆盖优先级：CLI > 配置文件 > 内置默认值。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	required := strings.TrimSpace(cli.ConfigPath) != ""
	cfgPath := filepath.Join(cwdAbs, FileName)
	if required {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		if required {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		cfgPath = ""
	}

	eff, err := merge(cwdAbs, cli, fc)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	eff.ConfigPath = cfgPath
	return eff, nil
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig) (EffectiveConfig, error) {
	eff := EffectiveConfig{
		Addr:        pick(cli.AddrSet, cli.Addr, fc.Server.Addr, DefaultAddr),
		ProxyURL:    pick(cli.ProxyURLSet, cli.ProxyURL, fc.HTTP.ProxyURL, ""),
		UserAgent:   strings.TrimSpace(fc.HTTP.UserAgent),
		CinemetaURL: pick(false, "", fc.Metadata.CinemetaURL, meta.DefaultCinemetaURL),
		TMDBAPIKey:  strings.TrimSpace(fc.Metadata.TMDBAPIKey),
		LogLevel:    strings.ToLower(pick(cli.LogLevelSet, cli.LogLevel, fc.Log.Level, DefaultLogLevel)),
		LogFormat:   strings.ToLower(pick(cli.LogFormatSet, cli.LogFormat, fc.Log.Format, DefaultLogFormat)),
	}

	if dir := pick(cli.CacheDirSet, cli.CacheDir, fc.Cache.Dir, ""); dir != "" {
		eff.CacheDir = absCleanFrom(cwdAbs, dir)
	}

	if eff.ProxyURL != "" {
		u, err := url.Parse(eff.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, fmt.Errorf("http.proxy_url 无效：%q", eff.ProxyURL)
		}
	}
	if u, err := url.Parse(eff.CinemetaURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return EffectiveConfig{}, fmt.Errorf("metadata.cinemeta_url 必须是 http/https：%q", eff.CinemetaURL)
	}
	if !logging.ValidLevel(eff.LogLevel) {
		return EffectiveConfig{}, fmt.Errorf("log.level 只能是 debug/info/warn/error，实际是 %q", eff.LogLevel)
	}
	switch eff.LogFormat {
	case "auto", "json", "console":
	default:
		return EffectiveConfig{}, fmt.Errorf("log.format 只能是 auto/json/console，实际是 %q", eff.LogFormat)
	}

	order, err := metaOrder(fc.Metadata.Order)
	if err != nil {
		return EffectiveConfig{}, err
	}
	eff.MetaOrder = order

	durations := []struct {
		name string
		raw  string
		def  time.Duration
		dst  *time.Duration
	}{
		{"cache.search_ttl", fc.Cache.SearchTTL, cache.DefaultSearchTTL, &eff.SearchTTL},
		{"cache.stream_ttl", fc.Cache.StreamTTL, cache.DefaultStreamTTL, &eff.StreamTTL},
		{"cache.sweep_delay", fc.Cache.SweepDelay, cache.DefaultSweepDelay, &eff.SweepDelay},
		{"cache.sweep_interval", fc.Cache.SweepInterval, cache.DefaultSweepInterval, &eff.SweepInterval},
	}
	for _, d := range durations {
		v, err := parseDuration(d.raw, d.def)
		if err != nil {
			return EffectiveConfig{}, fmt.Errorf("%s 无效：%w", d.name, err)
		}
		*d.dst = v
	}

	srcs, err := mergeSources(source.Builtin(), fc.Sources)
	if err != nil {
		return EffectiveConfig{}, err
	}
	eff.Sources = srcs
	return eff, nil
}

func metaOrder(in []string) ([]string, error) {
	if len(in) == 0 {
		return append([]string(nil), DefaultMetaOrder...), nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, name := range in {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case "cinemeta", "tmdb":
		default:
			return nil, fmt.Errorf("metadata.order 只能包含 cinemeta/tmdb，实际是 %q", name)
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}

// pick：CLI 显式指定 > 配置文件非空 > 默认值。
func pick(cliSet bool, cliVal, fileVal, def string) string {
	if cliSet {
		return strings.TrimSpace(cliVal)
	}
	if v := strings.TrimSpace(fileVal); v != "" {
		return v
	}
	return def
}

func parseDuration(raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("必须为正数：%q", raw)
	}
	return d, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件；未知字段视为错误（通常是拼写错误）。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
