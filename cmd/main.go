package main

import "github.com/tinoosan/tesouraria/internal/cli"

func main() {
	cli.Execute()
}
