package main

import "github.com/palacemc/palace-web/internal/cli"

func main() {
	cli.Execute()
}
