package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/datapipe/kafka"
	"github.com/kbukum/datapipe/logger"
	"github.com/kbukum/datapipe/storage"
)

func newValidateCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE|NAME",
		Short: "Build a pipeline definition without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			cfg.ApplyDefaults()
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := logger.Nop()
			stores, err := storage.Open(cfg.Storage, log)
			if err != nil {
				return err
			}
			def, err := loadDefinition(cfg, args[0])
			if err != nil {
				return err
			}
			p, err := def.Build(newRegistry(cfg, stores, kafka.Readers(cfg.Kafka, log), log))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pipeline %s is valid (%s, %d steps)\n", p.Name(), p.Mode(), len(p.Steps()))
			for _, s := range p.Steps() {
				fmt.Fprintf(out, "  #%d %-20s %-10s %s\n", s.ID(), s.Name(), s.Operation(), s.Kind())
			}
			return nil
		},
	}
}
