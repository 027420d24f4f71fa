package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/John-Robertt/dhakaflix/internal/domain"
	"github.com/John-Robertt/dhakaflix/internal/source"
)

func writeFile(t *testing.T, p string, b []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatalf("写文件失败：%v", err)
	}
}

func TestLoadEffective_DefaultsWithoutFile(t *testing.T) {
	eff, err := LoadEffective(t.TempDir(), CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigPath != "" || eff.Addr != DefaultAddr || eff.LogLevel != "info" || eff.LogFormat != "auto" {
		t.Fatalf("默认值错误：%+v", eff)
	}
	if eff.SearchTTL != 12*time.Hour || eff.StreamTTL != 24*time.Hour || eff.SweepDelay != 30*time.Minute || eff.SweepInterval != 6*time.Hour {
		t.Fatalf("缓存默认值错误：%+v", eff)
	}
	if len(eff.Sources) != len(source.Builtin()) {
		t.Fatalf("应使用内置来源表：%d", len(eff.Sources))
	}
	if strings.Join(eff.MetaOrder, ",") != "cinemeta,tmdb" {
		t.Fatalf("meta 顺序默认值错误：%v", eff.MetaOrder)
	}
}

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	_, err := LoadEffective(t.TempDir(), CLIArgs{ConfigPath: "missing.toml"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("应可 errors.Is(os.ErrNotExist)")
	}
}

func TestLoadEffective_FileAndCLIMerge(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`
[server]
addr = ":8080"

[http]
proxy_url = "http://127.0.0.1:7890"

[cache]
dir = "cache"
stream_ttl = "48h"

[log]
level = "debug"
`))

	eff, err := LoadEffective(cwd, CLIArgs{Addr: ":9000", AddrSet: true, LogFormat: "json", LogFormatSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Addr != ":9000" {
		t.Fatalf("CLI 应覆盖配置文件：%q", eff.Addr)
	}
	if eff.ProxyURL != "http://127.0.0.1:7890" || eff.LogLevel != "debug" || eff.LogFormat != "json" {
		t.Fatalf("合并结果错误：%+v", eff)
	}
	if eff.CacheDir != filepath.Join(cwd, "cache") {
		t.Fatalf("cache.dir 应相对 cwd 解析：%q", eff.CacheDir)
	}
	if eff.StreamTTL != 48*time.Hour || eff.SearchTTL != 12*time.Hour {
		t.Fatalf("TTL 错误：%v %v", eff.StreamTTL, eff.SearchTTL)
	}
	if eff.ConfigPath != filepath.Join(cwd, FileName) {
		t.Fatalf("ConfigPath 错误：%q", eff.ConfigPath)
	}
}

func TestLoadEffective_CLIEmptyOverridesFile(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte("[http]\nproxy_url = \"http://p:1\"\n"))

	eff, err := LoadEffective(cwd, CLIArgs{ProxyURL: "", ProxyURLSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ProxyURL != "" {
		t.Fatalf("显式 --proxy-url= 应清空代理：%q", eff.ProxyURL)
	}
}

func TestLoadEffective_Invalid(t *testing.T) {
	cases := map[string]string{
		"syntax":        "[server\naddr=1",
		"unknown field": "[server]\nport = 1\n",
		"proxy":         "[http]\nproxy_url = \"127.0.0.1\"\n",
		"level":         "[log]\nlevel = \"loud\"\n",
		"format":        "[log]\nformat = \"xml\"\n",
		"ttl":           "[cache]\nsearch_ttl = \"soon\"\n",
		"negative ttl":  "[cache]\nstream_ttl = \"-1h\"\n",
		"meta order":    "[metadata]\norder = [\"imdb\"]\n",
		"cinemeta":      "[metadata]\ncinemeta_url = \"ftp://x\"\n",
		"bad kind":      "[[sources]]\nid = \"dhakaflix14\"\nkinds = [\"music\"]\n",
		"incomplete":    "[[sources]]\nid = \"new\"\nbase_url = \"http://x\"\n",
		"empty id":      "[[sources]]\nbase_url = \"http://x\"\n",
	}
	for name, body := range cases {
		cwd := t.TempDir()
		writeFile(t, filepath.Join(cwd, FileName), []byte(body))
		_, err := LoadEffective(cwd, CLIArgs{})
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("%s：期望 %q，实际 err=%v", name, ErrCodeInvalid, err)
		}
	}
}

func TestLoadEffective_SourceOverrides(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`
[[sources]]
id = "DhakaFlix12"
search_timeout = "15s"

[[sources]]
id = "dhakaflix9"
disabled = true

[[sources]]
id = "lan"
base_url = "http://192.168.1.10/"
server_name = "MEDIA"
kinds = ["movie", "series"]
series_keywords = ["TV Shows"]
main_pages = [{ path = "Movies/" }]
`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	reg, err := source.NewRegistry(eff.Sources...)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, ok := reg.Get("dhakaflix9"); ok {
		t.Fatalf("disabled 来源应被移除")
	}
	d12, _ := reg.Get("dhakaflix12")
	if d12.SearchTimeout != 15*time.Second || d12.ExtendedTimeout != 20*time.Second {
		t.Fatalf("只应覆盖给出的字段：%+v", d12)
	}
	lan, ok := reg.Get("lan")
	if !ok || lan.BaseURL != "http://192.168.1.10" || !lan.Supports(domain.KindSeries) || lan.MainPages[0].Label != "Movies" {
		t.Fatalf("新来源解析错误：%+v", lan)
	}
	all := reg.All()
	if all[len(all)-1].ID != "lan" {
		t.Fatalf("新来源应追加在末尾")
	}
}

func TestSampleTOML_ParsesStrictly(t *testing.T) {
	var fc FileConfig
	dec := toml.NewDecoder(strings.NewReader(SampleTOML())).DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		t.Fatalf("示例配置应能严格解析：%v", err)
	}
	if fc.Server.Addr != DefaultAddr {
		t.Fatalf("示例配置 addr 错误：%q", fc.Server.Addr)
	}
}

func TestWriteSample(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sub", FileName)
	if err := WriteSample(p, false); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := WriteSample(p, false); !errors.Is(err, os.ErrExist) {
		t.Fatalf("已存在时应返回 os.ErrExist，实际 %v", err)
	}
	if err := WriteSample(p, true); err != nil {
		t.Fatalf("--force 应覆盖：%v", err)
	}

	eff, err := LoadEffective(filepath.Dir(p), CLIArgs{})
	if err != nil {
		t.Fatalf("写出的示例配置应可加载：%v", err)
	}
	if eff.ConfigPath != p {
		t.Fatalf("ConfigPath 错误：%q", eff.ConfigPath)
	}
}
