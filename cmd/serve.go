package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sarchlab/bestfitsim/simulation"
)

var (
	serveCapacity  int
	servePort      int
	serveOutput    string
	serveNoBrowser bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the simulator with the interactive web UI.",
	Run: func(_ *cobra.Command, _ []string) {
		builder := simulation.MakeBuilder().
			WithCapacity(serveCapacity)

		if servePort > 0 {
			builder = builder.WithMonitorPort(servePort)
		}

		if serveOutput != "" {
			builder = builder.WithOutputFileName(serveOutput)
		}

		if serveNoBrowser {
			builder = builder.WithoutBrowser()
		}

		sim := builder.Build()
		defer sim.Terminate()

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs
	},
}

func init() {
	serveCmd.Flags().IntVar(&serveCapacity, "capacity",
		intFromEnv("BESTFITSIM_CAPACITY", simulation.DefaultCapacity),
		"total memory capacity in KB")
	serveCmd.Flags().IntVar(&servePort, "port",
		intFromEnv("BESTFITSIM_PORT", 0),
		"port of the monitoring server, random when 0")
	serveCmd.Flags().StringVar(&serveOutput, "output", "",
		"name of the recording database, without extension")
	serveCmd.Flags().BoolVar(&serveNoBrowser, "no-browser", false,
		"do not open the UI in a browser")

	rootCmd.AddCommand(serveCmd)
}
