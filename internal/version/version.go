package version

// Version is the current glint version. Overridden at build time via
// -ldflags "-X github.com/glint-nvim/glint/internal/version.Version=...".
var Version = "0.1.0-dev"
