// Package watch reports changes to a repository so callers can refresh derived views such as status output.
package watch
