// Package pool provides a generic, runtime-agnostic connection pool.
//
// A Pool multiplexes a bounded set of Conn values, created on demand
// through a caller-supplied Connector, across concurrent Borrow/Return
// calls. It maintains a warm minimum of connections, evicts connections
// that go idle or age out, and reports liveness/capacity failures through
// ReturnStatus and a small error taxonomy rather than panicking or
// blocking forever.
//
// The concrete transport a Conn wraps (a database handle, an HTTP
// keep-alive socket, a cache client) is deliberately out of scope; see the
// adapter subpackages for examples wiring real clients into the Connector
// contract.
package pool
