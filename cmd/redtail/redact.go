package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"
)

var redactCmd = &cobra.Command{
	Use:   "redact",
	Short: "Redact stdin line by line to stdout",
	Long:  "Applies the same rules the viewer uses, including redact.extra from the config file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		r, err := cfg.Redactor()
		if err != nil {
			return err
		}

		scanner := bufio.NewScanner(cmd.InOrStdin())
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		out := bufio.NewWriter(cmd.OutOrStdout())
		defer out.Flush()
		for scanner.Scan() {
			fmt.Fprintln(out, r.Redact(scanner.Text()))
		}
		return scanner.Err()
	},
}
