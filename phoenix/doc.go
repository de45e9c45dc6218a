// Package phoenix is a client for the Phoenix Channels WebSocket protocol.
// A Socket owns the transport and reconnect/heartbeat loops; Channels are
// topic-scoped conversations joined over it; Push carries a single outbound
// event through to its reply.
package phoenix
