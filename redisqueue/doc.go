// Package redisqueue is a Redis-backed implementation of the dispatch job
// queue. Jobs are pushed onto a list and deduplicated by job id with a
// short-lived marker key, so at-least-once event delivery does not produce
// duplicate background work.
package redisqueue
