// Package cascade implements the trip/block time-cascade: forward propagation
// of recovery-time edits through a trip and its vehicle block, and the rule
// that a block's last trip carries no recovery time. Operations take a
// schedule snapshot and return a new consistent one.
package cascade
