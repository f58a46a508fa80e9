package main

import "pact-sync-client/cmd"

func main() {
	cmd.Run()
}
