package main

import (
	"fmt"

	"github.com/spf13/cobra"

	dtrace "github.com/jjgarcianorway/anna-assistant-sub000/pkg/trace"
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Debug trace file operations",
}

var traceVerifyCmd = &cobra.Command{
	Use:   "verify [trace.jsonl]",
	Short: "Verify the hash chain of a debug trace file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := dtrace.VerifyFile(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !result.Valid {
			fmt.Fprintf(out, "✗ Chain broken at event %d\n", result.BrokenAt)
			if result.Error != "" {
				fmt.Fprintf(out, "  %s\n", result.Error)
			}
			return fmt.Errorf("chain verification failed")
		}
		fmt.Fprintf(out, "✓ Chain integrity: %d events, no breaks\n", result.EventCount)
		return nil
	},
}

func init() {
	traceCmd.AddCommand(traceVerifyCmd)
}
