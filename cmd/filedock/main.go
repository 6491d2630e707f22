package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/filedock/filedock/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "filedock",
	Short:   "File metadata and access-control service",
	Long: `Filedock is the metadata and access-control backend for a
multi-tenant file sharing service. It coordinates two-phase uploads
against an object store and serves role-scoped metadata queries.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var configFiles []string
		if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
			configFiles = append(configFiles, configFile)
		}

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Log.Level)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (default: sqlite, env: FILEDOCK_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (default: filedock.db, env: FILEDOCK_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("db-table", "", "file metadata table name (default: filedock_files, env: FILEDOCK_DATABASE_TABLE)")
	rootCmd.PersistentFlags().String("storage-backend", "", "object store backend: local, minio (default: local, env: FILEDOCK_STORAGE_BACKEND)")
	rootCmd.PersistentFlags().String("storage-path", "", "local storage directory path (default: ./data, env: FILEDOCK_STORAGE_LOCAL_PATH)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
