// Package config provides configuration loading and validation for the feeling card service.
// It layers built-in defaults, an optional YAML file, an optional .env file and the process
// environment, and decides which storage backends are available from the credentials present.
package config
