// Command dbunit applies database fixtures from the command line.
package main

import "github.com/mesh-intelligence/dbunit/internal/cli"

func main() {
	cli.Execute()
}
