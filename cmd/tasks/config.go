package main

import (
	"os"

	"taskSync/internal/config"
	"taskSync/internal/output"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Действующая конфигурация",
	Long:  `Печатает конфигурацию после наложения переменных окружения ` + config.EnvPrefix + `_*.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		if outputFormat() == output.FormatJSON {
			return output.JSON(os.Stdout, cfg)
		}
		raw, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(raw)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
