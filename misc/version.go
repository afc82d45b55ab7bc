// Package misc keeps build time information.
package misc

// Set at build time with -ldflags "-X bcbook/misc.version=... -X bcbook/misc.gitHash=...".
var (
	version = "dev"
	gitHash = "unknown"
)

const appName = "bcbook"

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}
