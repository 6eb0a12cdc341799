// Package unix provides the Unix domain socket implementation of the
// transport interfaces. Stale socket files are removed before binding.
package unix
