package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qtbundle/deploy"
)

// verifyCmd re-checks a deployed bundle without mutating it.
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Report bundle binaries still referencing host library locations",
	RunE: func(cmd *cobra.Command, args []string) error {
		d := deploy.New(buildConfig(), deploy.WithLogger(logger))
		report, err := d.Verify()
		if err != nil {
			return err
		}
		fmt.Println(report)
		if !report.OK() {
			return fmt.Errorf("bundle is not self-contained")
		}
		return nil
	},
}
