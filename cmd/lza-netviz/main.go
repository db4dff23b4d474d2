package main

import (
	"github.com/p3dr0zz/LZA-Network-Visualizer/cmd/lza-netviz/commands"
)

func main() {
	commands.Execute()
}
