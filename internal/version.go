package internal

// Version is the current release, reported by the command line binaries.
const Version = "0.3.0"
