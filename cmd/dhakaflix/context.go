package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/dhakaflix/internal/config"
	"github.com/John-Robertt/dhakaflix/internal/search"
)

type commandContext struct {
	cli config.CLIArgs

	configOnce sync.Once
	config     config.EffectiveConfig
	configErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

// markSetFlags 记录哪些覆盖项是显式传入的（允许用空串覆盖配置文件）。
func (c *commandContext) markSetFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	c.cli.AddrSet = f.Changed("addr")
	c.cli.ProxyURLSet = f.Changed("proxy-url")
	c.cli.CacheDirSet = f.Changed("cache-dir")
	c.cli.LogLevelSet = f.Changed("log-level")
	c.cli.LogFormatSet = f.Changed("log-format")
}

func (c *commandContext) ensureConfig() (config.EffectiveConfig, error) {
	c.configOnce.Do(func() {
		cwd, err := os.Getwd()
		if err != nil {
			c.configErr = fmt.Errorf("读取当前目录失败：%w", err)
			return
		}
		c.config, c.configErr = config.LoadEffective(cwd, c.cli)
	})
	return c.config, c.configErr
}

// openApp 按生效配置装配全部组件；obs 为 nil 时不输出搜索进度。
func (c *commandContext) openApp(obs search.Observer) (*app, error) {
	eff, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return newApp(eff, os.Stderr, obs)
}

// searchObserver 只在交互终端启用进度输出；写 stderr，不污染 stdout。
func searchObserver() search.Observer {
	w, ok := pickProgressWriter()
	if !ok {
		return nil
	}
	return newProgressUI(w)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func pickProgressWriter() (io.Writer, bool) {
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 只重定向了 stderr 时 stdout 仍可能是终端（此时 stdout 输出表格，不是 JSON）。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}

// wantJSON：显式 --json，或 stdout 不是终端时输出 JSON（便于管道消费）。
func wantJSON(cmd *cobra.Command, forced bool) bool {
	return forced || !isTTY(cmd.OutOrStdout())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
