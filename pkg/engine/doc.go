// Package engine assembles a chat model from configuration. It loads
// settings from the environment and an optional YAML file, validates them,
// picks a provider from the registry, and wraps it with rate limiting.
package engine
