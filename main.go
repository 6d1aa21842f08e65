package main

import "github.com/sarchlab/bestfitsim/cmd"

func main() {
	cmd.Execute()
}
