// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle (dataset
// discovery and the serial per-session stage loop), decoupled from any
// specific entrypoint like a CLI.
package app
