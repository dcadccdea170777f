// Package config handles configuration loading for pve-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults; with no file at all,
// Default() serves a working setup on the node's own TLS certificate.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${PVE_GATEWAY_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	gateway:
//	  snapshot_ttl: "10s"
//	  exec_timeout: "5m"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  addr: ":5555"
//	  cert_file: "/etc/pve/local/pve-ssl.pem"
//	  key_file: "/etc/pve/local/pve-ssl.key"
//
// Leaving cert_file and key_file both empty serves plain HTTP, for use
// behind a reverse proxy.
//
// Gateway tuning:
//
//	gateway:
//	  snapshot_ttl: "10s"
//	  exec_timeout: "5m"
//
// Action ledger:
//
//	database:
//	  path: "/var/lib/pve-gateway/actions.db"
//
// An empty path disables the ledger.
//
// Authentication:
//
//	auth:
//	  required: true
//	  jwt_secret: "${PVE_GATEWAY_JWT_SECRET}"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
