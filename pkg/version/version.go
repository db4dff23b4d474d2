package version

// Version defaults to "dev" and is overwritten at release build time with
// -ldflags "-X github.com/p3dr0zz/LZA-Network-Visualizer/pkg/version.Version=...".
var Version = "dev"

const AppName = "lza-netviz"
