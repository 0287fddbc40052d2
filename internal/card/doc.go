// Package card defines the feeling analysis schema, the persisted feeling
// card record and the failure taxonomy shared by the pipeline stages.
package card
