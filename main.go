// main.go - tile-to-png entry point
package main

import "github.com/valpere/tile_to_png/cmd"

func main() {
	cmd.Execute()
}
