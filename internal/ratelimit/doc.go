// Package ratelimit admits or throttles mutating operations per user and per
// operation class.
//
// Buckets are token buckets: Capacity tokens at most, refilled at Rate tokens
// per Period. A denied call consumes nothing and reports how long the caller
// has to wait before the next token is available.
//
// Two backends exist:
//
//   - MemoryGovernor: golang.org/x/time/rate limiters cached per (class, key),
//     cleaned up by an idle janitor. Good for a single process.
//   - RedisGovernor: the same bucket kept in a Redis hash and updated by a Lua
//     script, shared by every API replica.
package ratelimit
