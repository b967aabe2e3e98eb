package main

import "github.com/user/stashd/cmd"

func main() {
	cmd.Execute()
}
