package main

import "github.com/JonMunkholm/labelbook/internal/cli"

func main() {
	cli.Execute()
}
