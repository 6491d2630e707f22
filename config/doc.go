// Package config provides configuration loading and validation for filedock.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (FILEDOCK_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with FILEDOCK_ prefix:
//   - server.port → FILEDOCK_SERVER_PORT
//   - database.type → FILEDOCK_DATABASE_TYPE
//   - storage.backend → FILEDOCK_STORAGE_BACKEND
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port and externally reachable base URL
//   - Engine: reservation TTL, handle TTL and sweep interval (seconds)
//   - Database: type (sqlite/postgres), DSN and table name
//   - Storage: backend selection (local/minio) and backend settings
//   - Auth: signing region, service and access keys for blob URLs
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level
package config
