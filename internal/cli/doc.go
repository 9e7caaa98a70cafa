// Package cli implements the prgate command tree: review, analyze, servers,
// providers, config, cache, hook, serve and version.
//
// Commands set exitCode rather than calling os.Exit so Run can return it.
package cli
