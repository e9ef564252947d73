// Package config loads and validates the assessment service configuration.
//
// Configuration comes from a YAML file, optionally overridden by
// environment variables:
//
//	cfg, err := config.LoadConfig("idp.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("idp.yaml")
//
// # Environment Variable Overrides
//
// Variables follow the naming convention IDP_SECTION_FIELD:
//
//   - IDP_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - IDP_STORAGE_SQLITE_PATH overrides storage.sqlite.path
//   - IDP_EVALUATION_WEBHOOK_SECRET overrides evaluation.webhook_secret
//
// # Configuration Precedence
//
// Values are applied in the following order (later overrides earlier):
//
//  1. Defaults (see Default and the Default* constants)
//  2. YAML file
//  3. Environment variables
//
// The resulting *Config is passed explicitly to each component
// constructor; the package keeps no global instance.
package config
