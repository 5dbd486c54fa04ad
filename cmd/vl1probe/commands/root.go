package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logLevel string

func Execute() error {
	root := &cobra.Command{
		Use:          "vl1probe",
		Short:        "Exercise the VL1 peer session layer",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "logrus level (debug, info, warn, error)")

	root.AddCommand(keygenCmd(), selftestCmd())
	return root.Execute()
}
