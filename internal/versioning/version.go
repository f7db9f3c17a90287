package versioning

// Set at build time with -ldflags "-X github.com/kartr/kartr/internal/versioning.ApplicationVersion=...".
var (
	ApplicationVersion = "dev"
	Commit             = "unknown"
)
