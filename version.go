package quickhold

import "fmt"

// Release version of the application.
const (
	Maj = 0
	Min = 1
	Fix = 0
	// Suffix marks builds that are not a tagged release.
	Suffix = "-dev"
)

// GitCommit is set at build time with
//   -ldflags "-X github.com/iov-one/quickhold.GitCommit=<hash>"
var GitCommit = ""

// Version returns the release version followed by the git commit, if known.
func Version() string {
	v := fmt.Sprintf("v%d.%d.%d%s", Maj, Min, Fix, Suffix)
	if GitCommit != "" {
		v += " " + GitCommit
	}
	return v
}
