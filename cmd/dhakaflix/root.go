package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := newCommandContext()

	rootCmd := &cobra.Command{
		Use:           "dhakaflix",
		Short:         "DhakaFlix addon server and CLI",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			ctx.markSetFlags(cmd)
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.cli.ConfigPath, "config", "c", "", "配置文件路径（默认读取 cwd 下的 dhakaflix.toml）")
	flags.StringVar(&ctx.cli.Addr, "addr", "", "HTTP 监听地址（默认 :7000）")
	flags.StringVar(&ctx.cli.ProxyURL, "proxy-url", "", "出站 HTTP 代理；传空串可覆盖配置文件中的代理")
	flags.StringVar(&ctx.cli.CacheDir, "cache-dir", "", "持久化缓存目录；为空表示纯内存缓存")
	flags.StringVar(&ctx.cli.LogLevel, "log-level", "", "日志级别：debug|info|warn|error")
	flags.StringVar(&ctx.cli.LogFormat, "log-format", "", "日志格式：auto|console|json")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newStreamsCommand(ctx))
	rootCmd.AddCommand(newResolveCommand(ctx))
	rootCmd.AddCommand(newMetaCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}
