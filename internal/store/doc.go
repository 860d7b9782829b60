// Package store persists the kiosk's network credentials.
//
// The store is a small durable key-value namespace kept in a YAML file.
// Only two keys are used by the kiosk, network_name and secret, which
// together form the Credentials read once at boot and written only by the
// provisioning portal.
//
// Writes are atomic: the document is written to a temporary file with
// user-only permissions and renamed into place, so a power loss during a
// save leaves either the old or the new credentials on disk.
package store
