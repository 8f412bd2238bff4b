package main

import "github.com/profixcrm/profixcrm/cmd"

func main() {
	cmd.Execute()
}
