// Package daemon keeps the live notification stack for stackdraw serve:
// it applies replacements and timeouts and re-renders the stack image
// whenever the stack or the settings change.
package daemon
