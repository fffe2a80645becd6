// Package config loads podscribe's TOML configuration.
//
// Loading follows a fixed sequence: start from Default, decode the file if one exists, fill
// gaps from the environment and expand paths (normalize), then Validate. Components receive
// the resolved values through their own config structs and never read the environment
// themselves.
package config
