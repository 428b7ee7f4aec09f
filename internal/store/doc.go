// Package store keeps published status updates for the web dashboard.
//
// This package is internal to matchwatch. It holds the latest status and a
// bounded history, and fans updates out to connected dashboard clients.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [StatusRecord]: Storage representation of one published update
//
// Dashboard subscribers receive updates via channels with non-blocking sends
// (slow browsers miss updates rather than block the system). This is
// separate from matchwatch handlers, which never miss a tick.
package store
