package common

// Version is set at build time via ldflags:
//
//	go build -ldflags "-X github.com/foliokit/folio/internal/common.Version=1.2.3"
var Version = "dev"

// GetVersion returns the current build version.
func GetVersion() string {
	return Version
}
