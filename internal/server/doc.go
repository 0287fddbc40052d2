// Package server implements the HTTP API: card creation from an uploaded
// utterance, the timeline listing and workbook export, locally stored
// artifacts, and health, configuration, statistics and metrics endpoints.
package server
