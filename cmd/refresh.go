// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/ichard26/ghstats/internal/config"
	"github.com/ichard26/ghstats/internal/gateway"
	"github.com/ichard26/ghstats/internal/site"
	"github.com/ichard26/ghstats/internal/store"
	"github.com/ichard26/ghstats/internal/usecase"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetches today's statistics for every configured repository",
	Long: `Refreshes the time-series data files for every configured repository and
enabled view, then regenerates the site manifest. Repositories already
refreshed today are skipped; one repository's failure does not stop the rest.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		// Get the verbose flag from the root command to set up the logger.
		verbose, _ := cmd.InheritedFlags().GetBool("verbose")
		logger := log.New(io.Discard, "", log.LstdFlags) // Default: discard all logs.
		if verbose {
			logger.SetOutput(os.Stderr) // If verbose, log to standard error.
		}

		configPath, _ := cmd.InheritedFlags().GetString("config")
		token := os.Getenv("GITHUB_TOKEN")
		if token == "" {
			fmt.Fprintln(os.Stderr, "Error: GITHUB_TOKEN environment variable is not set.")
			os.Exit(1)
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}

		// Inject dependencies and run the refresh.
		githubGateway, err := gateway.NewGitHubGateway(token, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}
		seriesStore := store.New(cfg.BasePath)
		refresher := usecase.NewRefresher(githubGateway, seriesStore, logger)

		report, runErr := refresher.Run(ctx, cfg)

		// Print the run summary even when the run aborted partway.
		if report != nil {
			jsonData, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to marshal run report to JSON: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(jsonData))
		}
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "Refresh run aborted: %v\n", runErr)
			os.Exit(1)
		}

		if err := site.Write(cfg, seriesStore); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write site manifest: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
