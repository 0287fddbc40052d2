// Package logger builds the logrus logger used across the service.
package logger
