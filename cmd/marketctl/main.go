package main

import (
	"nepsemarket-backend/cmd/marketctl/cmd"
)

func main() {
	cmd.Execute()
}
