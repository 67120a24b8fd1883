package main

import "github.com/ichard26/ghstats/cmd"

func main() {
	cmd.Execute()
}
