package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinicrx",
		Short:         "Clinic patient and prescription records service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(susCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create schemas, tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()
			return a.migrate()
		},
	}
}

func susCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sus",
		Short: "e-SUS integration",
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy patients from the e-SUS database",
		Long: "Reads every row of SUS_TABLE from SUS_DATABASE_URL and sends it to SUS_TARGET_URL,\n" +
			"or with --direct registers the patients in the local database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			direct, _ := cmd.Flags().GetBool("direct")
			return runSUSSync(cmd.Context(), dryRun, direct)
		},
	}
	syncCmd.Flags().Bool("dry-run", false, "Read and validate rows without sending them")
	syncCmd.Flags().Bool("direct", false, "Write into the local patient store instead of SUS_TARGET_URL")
	cmd.AddCommand(syncCmd)

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "clinicrx", version)
		},
	}
}
