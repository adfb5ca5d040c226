// Package logging configures the zerolog logger shared by the vault
// commands, with CREDITVAULT_LOG_* environment overrides.
package logging
