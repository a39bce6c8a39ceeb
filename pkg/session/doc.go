/*
Package session orchestrates conversation persistence and concurrency.

It guarantees the engine's turn-serialization requirement: at most one turn
of a conversation is processed at a time, locally through reference-counted
mutexes and across replicas through an optional distributed locker, while
any number of distinct conversations proceed in parallel.
*/
package session
