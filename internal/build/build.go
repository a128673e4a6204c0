package build

// Version is overridden at link time: -ldflags "-X github.com/integrail/poetry-assistant/internal/build.Version=..."
var Version = "dev"
