// Package model implements the clients for the external generative model:
// utterance analysis with a schema-constrained response, square image
// synthesis and voice synthesis. Every call is a single attempt. Failures are
// classified as configuration, transport or contract errors.
package model
