// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness reactor used by the hioload-rt
// executor: one epoll instance shared by every suspended future, plus a wake
// registry mapping each watched descriptor to the waker that must fire when
// the descriptor becomes ready.
//
// Descriptors are armed with EPOLLONESHOT. A readiness report consumes the
// registration: the waker is removed from the registry before it is invoked,
// and a future that is still pending after its next poll registers again.
//
// Only Linux is supported; on other platforms New returns api.ErrNotSupported.
package reactor
