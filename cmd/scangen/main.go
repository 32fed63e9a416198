package main

import "github.com/OpenTraceLab/scangen/cmd/scangen/cmd"

func main() {
	cmd.Execute()
}
