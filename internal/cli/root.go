package cli

import (
	"github.com/lazypower/caffeine/internal/client"
	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "caffeine",
	Short: "Track caffeine intake and its decay over time",
	Long: "Caffeine logs the drinks you have and estimates how much caffeine is in your system " +
		"right now, using first-order exponential decay with a configurable half-life.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", "", "Server URL (default $CAFFEINE_URL or http://127.0.0.1:37778)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(curveCmd)
	rootCmd.AddCommand(drinksCmd)
}

func newClient() *client.Client {
	return client.New(serverURL)
}
