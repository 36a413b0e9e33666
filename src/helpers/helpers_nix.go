//go:build !windows

/*
   Helpers for all non-windows machines
*/

package helpers

// UserDir is the name of the collector directory in the user's home directory
const UserDir = ".tml-collection"
