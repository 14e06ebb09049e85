package main

import "github.com/felixgeelhaar/kudzu-context/cmd/kudzu-context/cli"

func main() {
	cli.Execute()
}
