// Package registry tracks live websocket connections scoped by tenant and by
// (tenant, user), and fans messages out to them without holding locks during
// socket I/O.
package registry
