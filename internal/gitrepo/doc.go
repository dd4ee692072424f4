// Package gitrepo interprets git clone sources and scrubs credentials from text that mentions them.
package gitrepo
