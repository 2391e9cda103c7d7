// Package quire is an embeddable page-render cache and dispatch core for
// paginated document viewers.
//
// It was built for sheet-music readers on touch displays, where the thing
// that matters is flipping to the next page with nothing visible happening
// in between: pages near the current position are pre-rendered into a
// bounded cache, display requests preempt pre-render work, and a cheap
// low-resolution placeholder is always produced before the full-height
// render replaces it.
//
// A Session owns the document handle, the page cache and the single worker
// goroutine that drains the command mailbox. The shell feeds it through a
// Navigator (or raw mailbox senders) and receives CacheResponse values on
// its subscriber callback.
package quire
