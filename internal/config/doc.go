// Package config loads kiosk settings and resolves the per-user
// configuration directory.
//
// Settings come from, in increasing precedence: built-in defaults, an
// optional autoprint.yaml (working directory or the config directory),
// a .env file, AUTOPRINT_* environment variables, and command-line flags
// bound by the CLI.
//
// # Example File
//
//	agent:
//	  url: http://192.168.1.100:8080
//	  device_key: esp32-kiosk-key-123
//	  device_id: KIOSK_001
//	setup:
//	  listen: ":80"
//	console:
//	  listen: ":8081"
//
// The network credentials entered through the setup portal are NOT part of
// this file. They live in the credential store (see package store).
package config
