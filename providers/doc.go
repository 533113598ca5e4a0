// Package providers contains the built-in vendor handler and send client
// implementations. Each vendor lives in its own subpackage and is wired
// through the root provider factories.
package providers
