package main

import cmd "github.com/kerbaras/copycomic/cmd/copycomic"

func main() {
	cmd.Execute()
}
