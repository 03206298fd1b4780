package version

// Version is the release version of HelpNow. Overridden at build time with
// -ldflags "-X helpnow/pkg/version.Version=...".
var Version = "v0.3.1"
