// Package textutil sanitizes names that become file names, on the local disk
// or as blob names in the session store.
package textutil
