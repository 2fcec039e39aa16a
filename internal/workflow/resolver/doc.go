// Package resolver expands a list of requested dataset identifiers into an
// ordered preparation plan where every dependency precedes the datasets that
// consume it.
package resolver
