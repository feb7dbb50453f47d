// Package supervisor implements the supervision-tree core of the runtime:
// a message-driven node that owns an ordered collection of supervised
// subjects (child supervisors or worker groups), restarts them according to
// a declared strategy, and preserves deployment order and identity across
// restart cycles.
//
// A Supervisor is a single-threaded cooperative task: it processes at most
// one control message at a time from its own inbox, and every subject it
// owns runs as its own goroutine. The registry and strategy carry no
// locking — they are only ever touched from the supervisor's own run loop;
// the default channel Broadcast guards its set of children with a mutex.
package supervisor
