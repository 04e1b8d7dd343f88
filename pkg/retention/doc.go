// Package retention prunes aged precedents on a cron schedule.
//
// Pruning keeps the precedent store bounded: records older than the
// configured retention window are deleted in one pass, and an optional
// max-records cap trims the oldest records beyond it. A retention of zero
// days disables age-based pruning.
package retention
