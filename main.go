package main

import "github.com/kasundularaam/flash-feather-starter-v6/cmd"

func main() {
	cmd.Execute()
}
