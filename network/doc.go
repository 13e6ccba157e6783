// Package network moves opaque byte messages between players over HTTP.
//
// # Core Components
//
// Peer: a node reachable at one address. It serves POST requests and hands
// every accepted body to its inbox, and it sends to other peers by rank.
//
// # Delivery
//
// Send retries a POST until the receiver acknowledges it with 202 Accepted
// or the timeout expires. Each message carries a random ID in the
// Message-Id header; a receiver acknowledges a repeated ID without
// delivering it again, so a retry after a lost acknowledgement is harmless.
//
// A receiver acknowledges only after the body is queued in its inbox. A
// sender that waits for each acknowledgement before sending the next
// message is therefore received in the order it sent.
//
// # Security
//
// WithCertificate and WithLimitedCAs switch the peer to mutually
// authenticated TLS.
package network
