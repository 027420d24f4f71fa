package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "管理搜索与 stream 缓存",
	}
	cacheCmd.AddCommand(newCacheSweepCommand(ctx))
	return cacheCmd
}

func newCacheSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "立即删除全部过期缓存条目（仅对持久化缓存目录有意义）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if a.eff.CacheDir == "" {
				fmt.Fprintln(out, "未配置 cache dir：内存缓存随进程退出，无需清理")
				return nil
			}
			n, err := a.store.Sweep()
			if err != nil {
				return fmt.Errorf("清理缓存失败：%w", err)
			}
			fmt.Fprintf(out, "已删除 %d 条过期缓存（%s）\n", n, a.eff.CacheDir)
			return nil
		},
	}
}
