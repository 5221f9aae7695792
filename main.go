package main

import "esp-translator/internal/cli"

func main() {
	cli.Execute()
}
