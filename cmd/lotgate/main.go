package main

import "github.com/MeKo-Tech/lotgate/cmd/lotgate/cmd"

func main() {
	cmd.Execute()
}
