/*
Package session orchestrates concurrent access to stored pages.

The Manager decorates a ports.PageStore with per-page locks so that read-modify-write
cycles (the shared application-scope page every session appends to, an AJAX render
replacing a committed state) never interleave, within one process or, with a
DistributedLocker, across replicas.
*/
package session
