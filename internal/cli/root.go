// Package cli wires the EduConnect chat server behind a cobra command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/himalthapa1/EduConnect/internal/config"
	clog "github.com/himalthapa1/EduConnect/internal/log"
)

// NewRootCommand 创建 educonnect 根命令。
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "educonnect",
		Short:         "EduConnect realtime chat server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newTokenCommand())
	return cmd
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig 读取并校验配置，同时初始化日志。
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	clog.Init(cfg.Env, cfg.LogLevel)
	return cfg, nil
}
