// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives shared by the hioload-rt executor. The ready queue
// is safe for any number of producers; consumption is reserved for the single
// goroutine running the executor loop.
package concurrency
