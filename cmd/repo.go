// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ichard26/ghstats/internal/config"
	"github.com/ichard26/ghstats/internal/domain"
)

// mutateConfig loads the configuration, applies fn, and saves it back.
func mutateConfig(cmd *cobra.Command, fn func(*config.Config) error) {
	configPath, _ := cmd.InheritedFlags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := fn(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save configuration: %v\n", err)
		os.Exit(1)
	}
}

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manages the set of tracked repositories",
}

var repoAddCmd = &cobra.Command{
	Use:   "add OWNER/NAME",
	Short: "Starts tracking a repository",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		repo, err := domain.ParseRepo(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		viewNames, _ := cmd.Flags().GetStringSlice("view")
		views := make([]domain.ViewKind, 0, len(viewNames))
		for _, name := range viewNames {
			view, err := domain.ParseViewKind(name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			views = append(views, view)
		}
		mutateConfig(cmd, func(cfg *config.Config) error {
			return cfg.AddRepo(repo, views)
		})
		fmt.Printf("Now tracking %s with views %v.\n", repo, views)
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:   "remove OWNER/NAME",
	Short: "Stops tracking a repository (stored data files are kept)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		repo, err := domain.ParseRepo(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		mutateConfig(cmd, func(cfg *config.Config) error {
			return cfg.RemoveRepo(repo)
		})
		fmt.Printf("No longer tracking %s.\n", repo)
	},
}

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Manages which views are enabled per repository",
}

func viewToggleCmd(use, short string, toggle func(*config.Config, domain.Repo, domain.ViewKind) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			repo, err := domain.ParseRepo(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			view, err := domain.ParseViewKind(args[1])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			mutateConfig(cmd, func(cfg *config.Config) error {
				return toggle(cfg, repo, view)
			})
		},
	}
}

func init() {
	repoAddCmd.Flags().StringSlice("view", []string{string(domain.ViewIssueCounts)},
		"Views to enable for the new repository (repeatable)")
	repoCmd.AddCommand(repoAddCmd)
	repoCmd.AddCommand(repoRemoveCmd)
	rootCmd.AddCommand(repoCmd)

	viewCmd.AddCommand(viewToggleCmd("enable OWNER/NAME VIEW", "Enables a view for a repository",
		(*config.Config).EnableView))
	viewCmd.AddCommand(viewToggleCmd("disable OWNER/NAME VIEW", "Disables a view for a repository",
		(*config.Config).DisableView))
	rootCmd.AddCommand(viewCmd)
}
