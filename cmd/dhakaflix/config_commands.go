package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/dhakaflix/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "配置文件工具",
	}
	configCmd.AddCommand(newConfigInitCommand())
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "生成带注释的示例配置文件",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				target = config.FileName
			}
			if err := config.WriteSample(target, force); err != nil {
				if errors.Is(err, os.ErrExist) {
					return fmt.Errorf("配置文件已存在：%s（使用 --force 覆盖）", target)
				}
				return fmt.Errorf("写入配置文件失败：%w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已写入示例配置：%s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "输出路径（默认 ./dhakaflix.toml）")
	cmd.Flags().BoolVar(&force, "force", false, "覆盖已有文件")
	return cmd
}
