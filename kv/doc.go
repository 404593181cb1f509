// Package kv defines the shared key-value contract behind the session registry
// and the rate limiter, and its Redis implementation.
//
// # Contract
//
//   - [Store.Set], [Store.Get], [Store.Delete]: plain values with a storage TTL.
//   - [Store.Increment]: atomic counter; the TTL is applied only when the key is created.
//   - [Store.SetIndexed] / [Store.ReplaceExisting]: value writes that keep a set index
//     in step within one server-side script.
//
// Every transport failure is reported as [ErrUnavailable] so callers can decide
// between failing open and failing closed. A missing key is [ErrNotFound].
//
// # What this package must NOT do
//
//   - Interpret stored values.
//   - Retry failed commands.
package kv
