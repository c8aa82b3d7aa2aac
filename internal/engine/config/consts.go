package config

// NodeVersion can be set by the build system with -ldflags.
var NodeVersion string

// MetaDir is relative to the node path.
var MetaDir string = "./.meta"

// HealthRoute is the liveness endpoint.
var HealthRoute string = "/healthz"

func init() {
	if NodeVersion == "" {
		NodeVersion = "v0.0.0-none"
	}
}
