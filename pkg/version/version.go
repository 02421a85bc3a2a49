package version

// Build holds the build identifier, injected via -ldflags. Default "dev".
var Build = "dev"

// String returns the human-readable controller version line.
func String() string {
	return "burrow " + Build
}
