package version

// Version is the current release of radarcov.
const Version = "v0.3.0"
