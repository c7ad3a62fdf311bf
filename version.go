package newbackend

// Version is the release of the module. Overridden at build time with
// -ldflags "-X github.com/jorge-rr00/newbackend.Version=...".
var Version = "0.3.0"
